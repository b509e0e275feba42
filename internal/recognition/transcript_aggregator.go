package recognition

import (
	"strings"
	"sync"

	"voicelist/internal/ports"
)

type transcriptAggregator struct {
	mu               sync.Mutex
	finals           []string
	lastAlternatives []string
	lastSpoken       string
}

func newTranscriptAggregator() *transcriptAggregator {
	return &transcriptAggregator{}
}

func (a *transcriptAggregator) Add(event ports.TranscriptEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	text := strings.TrimSpace(event.Text)
	if text == "" {
		return
	}
	a.lastSpoken = text
	if event.Kind == ports.TranscriptKindFinal {
		a.finals = append(a.finals, text)
		a.lastAlternatives = event.Alternatives
	}
}

// Raw joins final segments, falling back to the last partial when the
// provider never finalized the tail of the utterance.
func (a *transcriptAggregator) Raw() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rawLocked()
}

// Candidates returns the best transcript followed by the provider's other
// alternatives when the utterance was a single final segment.
func (a *transcriptAggregator) Candidates() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	best := a.rawLocked()
	if best == "" {
		return nil
	}

	candidates := []string{best}
	if len(a.finals) != 1 || best != a.finals[0] {
		return candidates
	}
	seen := map[string]bool{best: true}
	for _, alternative := range a.lastAlternatives {
		alternative = strings.TrimSpace(alternative)
		if alternative == "" || seen[alternative] {
			continue
		}
		seen[alternative] = true
		candidates = append(candidates, alternative)
	}
	return candidates
}

func (a *transcriptAggregator) rawLocked() string {
	joined := strings.TrimSpace(strings.Join(a.finals, " "))
	if joined == "" {
		return a.lastSpoken
	}
	if a.lastSpoken == "" || strings.HasSuffix(joined, a.lastSpoken) {
		return joined
	}
	if len(a.lastSpoken) > len(joined) {
		return strings.TrimSpace(joined + " " + a.lastSpoken)
	}
	return joined
}

// consumeTranscriptionEvents feeds the aggregator and calls speechEnded once
// the provider marks the end of an utterance that produced text.
func consumeTranscriptionEvents(
	session ports.StreamingSession,
	aggregator *transcriptAggregator,
	speechEnded func(),
	done chan struct{},
) {
	defer close(done)

	for event := range session.Events() {
		if strings.TrimSpace(event.Text) == "" {
			continue
		}
		aggregator.Add(event)
		if event.Kind == ports.TranscriptKindFinal && event.IsSpeechFinal {
			speechEnded()
		}
	}
}
