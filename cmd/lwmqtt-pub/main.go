// Command lwmqtt-pub connects, publishes one message, and exits, mirroring
// original_source's lw-mqtt-pub example program.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/axmq/lwmqtt/client"
	"github.com/axmq/lwmqtt/config"
	"github.com/axmq/lwmqtt/wire"
	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
)

// sink observes the one publish this program cares about and signals done
// once it has either succeeded or the connection failed.
type sink struct {
	client.NoopEventSink
	done chan error
}

func (s *sink) OnConnect(success bool, code wire.ConnAckCode) {
	if !success {
		s.done <- fmt.Errorf("connect refused: code %d", code)
	}
}

func (s *sink) OnPublish(packetID uint16) { s.done <- nil }

func (s *sink) OnDisconnect(expected bool) {
	if !expected {
		select {
		case s.done <- fmt.Errorf("disconnected unexpectedly"):
		default:
		}
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "lwmqtt-pub",
		Usage: "publish one MQTT message and exit",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Aliases: []string{"h"}, Value: "127.0.0.1", Usage: "broker host"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 1883, Usage: "broker port"},
			&cli.StringFlag{Name: "topic", Aliases: []string{"t"}, Required: true, Usage: "topic to publish to"},
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Required: true, Usage: "message payload"},
			&cli.IntFlag{Name: "qos", Value: 0, Usage: "QoS level (0-2)"},
			&cli.BoolFlag{Name: "retain", Usage: "set the RETAIN flag"},
			&cli.StringFlag{Name: "client-id", Usage: "MQTT client id (default: random)"},
			&cli.StringFlag{Name: "username", Usage: "broker username"},
			&cli.StringFlag{Name: "password", Usage: "broker password"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "print progress"},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "lwmqtt-pub:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.DefaultClientConfig()
	s := &sink{done: make(chan error, 1)}
	c := client.New(cfg, s)

	clientID := cmd.String("client-id")
	if clientID == "" {
		clientID = "lwmqtt-pub-" + uuid.NewString()
	}
	if err := c.SetClientID(clientID); err != nil {
		return err
	}
	if u := cmd.String("username"); u != "" {
		if err := c.SetCredentials(u, cmd.String("password")); err != nil {
			return err
		}
	}

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
	if err := c.Connect(addr); err != nil {
		return err
	}

	var published bool
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if err := c.Task(); err != nil {
			return err
		}
		if !published && c.State() == client.MqttConnected {
			published = true
			qosLevel := wire.QoS(cmd.Int("qos"))
			if _, err := c.Publish(cmd.String("topic"), []byte(cmd.String("message")), qosLevel, cmd.Bool("retain")); err != nil {
				return err
			}
			if qosLevel == wire.QoS0 {
				// No send-time callback for QoS0; a successful write is
				// the only confirmation this protocol offers.
				s.done <- nil
			}
		}
		select {
		case err := <-s.done:
			if cmd.Bool("verbose") && err == nil {
				fmt.Println("published")
			}
			return err
		default:
		}
		time.Sleep(time.Millisecond)
	}
	return fmt.Errorf("timed out waiting to publish")
}
