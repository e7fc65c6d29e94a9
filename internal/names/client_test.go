package names

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

type fakeCompleter struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   int
	prompts []Prompt
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt Prompt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestClient(t *testing.T, completer Completer) *Client {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client, err := NewClient(ClientOptions{Completer: completer, Logger: logger})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func TestNewClientRequiresCompleterAndLogger(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(ClientOptions{Logger: logrus.New()}); err == nil {
		t.Fatalf("expected error when completer is missing")
	}

	if _, err := NewClient(ClientOptions{Completer: &fakeCompleter{}}); err == nil {
		t.Fatalf("expected error when logger is missing")
	}
}

func TestSuggestReturnsEveryWellFormedRecord(t *testing.T) {
	t.Parallel()

	for _, count := range []int{0, 1, 3, 10} {
		count := count
		t.Run(fmt.Sprintf("%d records", count), func(t *testing.T) {
			t.Parallel()

			completer := &fakeCompleter{reply: suggestionArray(count)}
			client := newTestClient(t, completer)

			got := client.Suggest(context.Background(), Request{Query: "Classic", Mode: ModeHistorical, Language: LanguageEnglish})
			if len(got) != count {
				t.Fatalf("expected %d suggestions, got %d", count, len(got))
			}
			if completer.calls != 1 {
				t.Fatalf("expected exactly one model call, got %d", completer.calls)
			}
		})
	}
}

func TestSuggestReturnsEmptyOnMalformedReply(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{reply: "I cannot help with that."}
	client := newTestClient(t, completer)

	got := client.Suggest(context.Background(), Request{Query: "Classic", Mode: ModeAI})
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestSuggestReturnsEmptyOnTransportFailure(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{err: eris.New("401 unauthorized")}
	client := newTestClient(t, completer)

	got := client.Suggest(context.Background(), Request{Query: "Vintage", Mode: ModeHistorical})
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
	if completer.calls != 1 {
		t.Fatalf("expected a single attempt without retries, got %d", completer.calls)
	}
}

func TestSuggestSkipsModelForBlankQuery(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{reply: suggestionArray(2)}
	client := newTestClient(t, completer)

	got := client.Suggest(context.Background(), Request{Query: "  "})
	if len(got) != 0 {
		t.Fatalf("expected no suggestions, got %d", len(got))
	}
	if completer.calls != 0 {
		t.Fatalf("expected no model call for a blank query, got %d", completer.calls)
	}
}

func TestSuggestPassesLanguageIntoPrompt(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{reply: "[]"}
	client := newTestClient(t, completer)

	client.Suggest(context.Background(), Request{Query: "Modern", Mode: ModeAI, Language: LanguageSpanish})

	if len(completer.prompts) != 1 {
		t.Fatalf("expected one prompt, got %d", len(completer.prompts))
	}
	if !strings.Contains(completer.prompts[0].System, "Spanish") {
		t.Fatalf("expected Spanish instruction, got %q", completer.prompts[0].System)
	}
}
