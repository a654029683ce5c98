package topic

// Match reports whether topic (a concrete PUBLISH topic, never containing
// wildcards) satisfies filter (a subscription filter, which may contain
// '+' and '#'). '$'-prefixed topics never match a wildcard filter, per
// MQTT 3.1.1 §4.7.2. This is the reference wildcard matcher the broker's
// exact-match table can be swapped for - see broker.Table's doc comment.
func Match(filter, topic []byte) bool {
	if len(topic) > 0 && topic[0] == '$' && (containsByte(filter, '#') || containsByte(filter, '+')) {
		return false
	}
	if string(filter) == string(topic) {
		return true
	}

	filterLevels := splitLevels(filter)
	topicLevels := splitLevels(topic)
	return matchLevels(filterLevels, topicLevels)
}

func matchLevels(filterLevels, topicLevels [][]byte) bool {
	fi, ti := 0, 0
	for fi < len(filterLevels) && ti < len(topicLevels) {
		fl := filterLevels[fi]
		if len(fl) == 1 && fl[0] == '#' {
			return true
		}
		if len(fl) == 1 && fl[0] == '+' {
			fi++
			ti++
			continue
		}
		if string(fl) != string(topicLevels[ti]) {
			return false
		}
		fi++
		ti++
	}
	if fi < len(filterLevels) {
		return len(filterLevels)-fi == 1 && len(filterLevels[fi]) == 1 && filterLevels[fi][0] == '#'
	}
	return ti == len(topicLevels)
}
