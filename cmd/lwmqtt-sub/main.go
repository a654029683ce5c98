// Command lwmqtt-sub connects, subscribes to one topic, and prints every
// PUBLISH it receives until interrupted, mirroring original_source's
// lw-mqtt-sub example program.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/axmq/lwmqtt/client"
	"github.com/axmq/lwmqtt/config"
	"github.com/axmq/lwmqtt/wire"
	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
)

type sink struct {
	client.NoopEventSink
	verbose bool
	failed  chan error
}

func (s *sink) OnConnect(success bool, code wire.ConnAckCode) {
	if !success {
		s.failed <- fmt.Errorf("connect refused: code %d", code)
	}
}

func (s *sink) OnSubscribe(success bool, topic string, grantedQoS wire.QoS) {
	if !success {
		s.failed <- fmt.Errorf("subscribe refused")
		return
	}
	if s.verbose {
		fmt.Printf("subscribed, granted QoS %d\n", grantedQoS)
	}
}

func (s *sink) OnPublishReceived(topic string, payload []byte, qosLevel wire.QoS, retain bool) {
	fmt.Printf("%s: %s\n", topic, payload)
}

func (s *sink) OnDisconnect(expected bool) {
	if !expected {
		select {
		case s.failed <- fmt.Errorf("disconnected unexpectedly"):
		default:
		}
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "lwmqtt-sub",
		Usage: "subscribe to an MQTT topic and print incoming messages",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Aliases: []string{"h"}, Value: "127.0.0.1", Usage: "broker host"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 1883, Usage: "broker port"},
			&cli.StringFlag{Name: "topic", Aliases: []string{"t"}, Required: true, Usage: "topic filter to subscribe to"},
			&cli.IntFlag{Name: "qos", Value: 0, Usage: "requested QoS level (0-2)"},
			&cli.StringFlag{Name: "client-id", Usage: "MQTT client id (default: random)"},
			&cli.StringFlag{Name: "username", Usage: "broker username"},
			&cli.StringFlag{Name: "password", Usage: "broker password"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "print connection progress"},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "lwmqtt-sub:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.DefaultClientConfig()
	s := &sink{verbose: cmd.Bool("verbose"), failed: make(chan error, 1)}
	c := client.New(cfg, s)

	clientID := cmd.String("client-id")
	if clientID == "" {
		clientID = "lwmqtt-sub-" + uuid.NewString()
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

	var subscribed bool
	for {
		select {
		case <-ctx.Done():
			if c.State() == client.MqttConnected {
				return c.Disconnect()
			}
			return nil
		case err := <-s.failed:
			return err
		default:
		}

		if err := c.Task(); err != nil {
			return err
		}
		if !subscribed && c.State() == client.MqttConnected {
			subscribed = true
			if _, err := c.Subscribe(cmd.String("topic"), wire.QoS(cmd.Int("qos"))); err != nil {
				return err
			}
		}
		time.Sleep(time.Millisecond)
	}
}
