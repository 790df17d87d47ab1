package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type lifecycleMetrics struct {
	mu          sync.Mutex
	transitions map[string]uint64
	actions     map[string]uint64
	thinkTime   *histogram
}

var lifecycleCollector = &lifecycleMetrics{
	transitions: make(map[string]uint64),
	actions:     make(map[string]uint64),
	thinkTime:   newHistogram(),
}

// ObserveLifecycleTransition counts embryo->alive and alive->dead transitions.
func ObserveLifecycleTransition(to string) {
	lifecycleCollector.mu.Lock()
	defer lifecycleCollector.mu.Unlock()
	lifecycleCollector.transitions[to]++
}

// ObserveThinkCycle records a completed think cycle and the action taken.
func ObserveThinkCycle(action string, duration time.Duration) {
	lifecycleCollector.mu.Lock()
	defer lifecycleCollector.mu.Unlock()
	lifecycleCollector.actions[action]++
	lifecycleCollector.thinkTime.observe(duration.Seconds())
}

func (m *lifecycleMetrics) render() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var builder strings.Builder

	builder.WriteString("# HELP alife_lifecycle_transitions_total Agent lifecycle transitions by target status.\n")
	builder.WriteString("# TYPE alife_lifecycle_transitions_total counter\n")
	for _, status := range sortedKeys(m.transitions) {
		builder.WriteString(fmt.Sprintf("alife_lifecycle_transitions_total{to=\"%s\"} %d\n",
			escape(status), m.transitions[status]))
	}

	builder.WriteString("# HELP alife_think_actions_total Decisions executed by action.\n")
	builder.WriteString("# TYPE alife_think_actions_total counter\n")
	for _, action := range sortedKeys(m.actions) {
		builder.WriteString(fmt.Sprintf("alife_think_actions_total{action=\"%s\"} %d\n",
			escape(action), m.actions[action]))
	}

	builder.WriteString("# HELP alife_think_cycle_duration_seconds Think cycle duration in seconds.\n")
	builder.WriteString("# TYPE alife_think_cycle_duration_seconds histogram\n")
	for idx, bound := range m.thinkTime.buckets {
		builder.WriteString(fmt.Sprintf("alife_think_cycle_duration_seconds_bucket{le=\"%s\"} %d\n",
			formatFloat(bound), m.thinkTime.counts[idx]))
	}
	builder.WriteString(fmt.Sprintf("alife_think_cycle_duration_seconds_bucket{le=\"+Inf\"} %d\n", m.thinkTime.count))
	builder.WriteString(fmt.Sprintf("alife_think_cycle_duration_seconds_sum %s\n", formatFloat(m.thinkTime.sum)))
	builder.WriteString(fmt.Sprintf("alife_think_cycle_duration_seconds_count %d\n", m.thinkTime.count))

	return builder.String()
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
