package chat_test

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zhouzirui/medassist/backend/internal/model/chat"
	"github.com/zhouzirui/medassist/backend/internal/model/genai"
	"github.com/zhouzirui/medassist/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/medassist/backend/internal/service/chat"
)

func newController(gw chatservice.Gateway) *chatservice.Controller {
	return chatservice.NewController(chatservice.ControllerConfig{
		SessionID: "test",
		Preamble:  "medical only",
		Composer:  ai.NewComposer(genai.DefaultSafetySettings(""), nil),
		Gateway:   gw,
	})
}

func waitReply(t *testing.T, reply <-chan chat.Turn) chat.Turn {
	t.Helper()
	select {
	case turn, ok := <-reply:
		if !ok {
			t.Fatal("reply channel closed without a turn")
		}
		return turn
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reply")
	}
	return chat.Turn{}
}

func TestSubmitAppendsTwoTurnsPerRoundTrip(t *testing.T) {
	gw := &fakeGateway{}
	c := newController(gw)

	for i := 1; i <= 3; i++ {
		reply, result := c.Submit("question")
		if result != chatservice.SubmitAccepted {
			t.Fatalf("submission %d: expected accepted, got %s", i, result)
		}
		waitReply(t, reply)
		if c.Len() != 2*i {
			t.Fatalf("after %d submissions expected %d turns, got %d", i, 2*i, c.Len())
		}
	}

	turns := c.Transcript()
	for i, turn := range turns {
		want := chat.SenderUser
		if i%2 == 1 {
			want = chat.SenderAssistant
		}
		if turn.Sender != want {
			t.Fatalf("turn %d: expected sender %s, got %s", i, want, turn.Sender)
		}
	}
}

func TestSubmitWhileBusyIsDropped(t *testing.T) {
	gw := &fakeGateway{gate: make(chan struct{}), started: make(chan struct{}, 1)}
	c := newController(gw)

	reply, result := c.Submit("first")
	if result != chatservice.SubmitAccepted {
		t.Fatalf("expected accepted, got %s", result)
	}
	<-gw.started

	if !c.Busy() {
		t.Fatal("expected busy while call outstanding")
	}

	second, result := c.Submit("second")
	if result != chatservice.SubmitDropped || second != nil {
		t.Fatalf("expected dropped with nil channel, got %s", result)
	}
	if c.Len() != 1 {
		t.Fatalf("dropped submission must not change transcript, len=%d", c.Len())
	}

	close(gw.gate)
	waitReply(t, reply)

	if c.Busy() {
		t.Fatal("expected idle after reply")
	}
	if gw.calls() != 1 {
		t.Fatalf("expected 1 gateway call, got %d", gw.calls())
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 turns, got %d", c.Len())
	}
}

func TestSubmitEmptyInputIsIgnored(t *testing.T) {
	gw := &fakeGateway{}
	c := newController(gw)

	for _, text := range []string{"", "   ", "\t\n"} {
		reply, result := c.Submit(text)
		if result != chatservice.SubmitIgnored || reply != nil {
			t.Fatalf("Submit(%q): expected ignored, got %s", text, result)
		}
	}

	if c.Len() != 0 || gw.calls() != 0 || c.Busy() {
		t.Fatalf("empty input must be a no-op: len=%d calls=%d busy=%v", c.Len(), gw.calls(), c.Busy())
	}
}

func TestTransportFailureReturnsToIdle(t *testing.T) {
	gw := &fakeGateway{reply: func(n int) (*genai.GenerateContentResponse, error) {
		if n == 1 {
			return nil, &ai.TransportError{Cause: errors.New("no such host")}
		}
		return okResponse("recovered"), nil
	}}
	c := newController(gw)

	reply, _ := c.Submit("hello")
	turn := waitReply(t, reply)
	if turn.Status != chat.StatusError || !strings.Contains(turn.Text, "no such host") {
		t.Fatalf("expected error turn embedding cause, got %+v", turn)
	}
	if c.Busy() {
		t.Fatal("expected idle after failure")
	}

	reply, result := c.Submit("hello again")
	if result != chatservice.SubmitAccepted {
		t.Fatalf("expected accepted after failure, got %s", result)
	}
	if turn := waitReply(t, reply); turn.Text != "recovered" {
		t.Fatalf("unexpected reply %+v", turn)
	}
}

func TestSubmitComposesFromSnapshotBeforeUserTurn(t *testing.T) {
	gw := &fakeGateway{}
	c := newController(gw)
	c.Seed(chat.AssistantTurn("Hello! I'm a medical information assistant."))

	reply, _ := c.Submit("  What causes migraines?  ")
	waitReply(t, reply)

	req := gw.request(0)
	if len(req.Contents) != 2 {
		t.Fatalf("expected greeting + user message, got %d contents", len(req.Contents))
	}
	if req.Contents[0].Role != genai.RoleModel || req.Contents[1].Role != genai.RoleUser {
		t.Fatalf("unexpected roles: %s, %s", req.Contents[0].Role, req.Contents[1].Role)
	}
	if req.Contents[1].Parts[0].Text != "What causes migraines?" {
		t.Fatalf("expected trimmed user text, got %q", req.Contents[1].Parts[0].Text)
	}
	if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != "medical only" {
		t.Fatalf("expected preamble, got %+v", req.SystemInstruction)
	}

	turns := c.Transcript()
	if turns[1].Text != "What causes migraines?" {
		t.Fatalf("expected trimmed user turn, got %q", turns[1].Text)
	}
}

func TestWatchReceivesTurnAndBusyEvents(t *testing.T) {
	gw := &fakeGateway{}
	c := newController(gw)

	var mu sync.Mutex
	var events []chatservice.Event
	stop := c.Watch(func(e chatservice.Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})
	defer stop()

	reply, _ := c.Submit("hi")
	waitReply(t, reply)

	mu.Lock()
	defer mu.Unlock()

	kinds := make([]string, 0, len(events))
	for _, e := range events {
		switch e.Kind {
		case chatservice.EventTurn:
			kinds = append(kinds, "turn:"+string(e.Turn.Sender))
		case chatservice.EventBusy:
			if e.Busy {
				kinds = append(kinds, "busy")
			} else {
				kinds = append(kinds, "idle")
			}
		}
	}

	want := "turn:user,busy,turn:assistant,idle"
	if got := strings.Join(kinds, ","); got != want {
		t.Fatalf("unexpected event sequence %s, want %s", got, want)
	}
}

func TestCloseDiscardsLateReply(t *testing.T) {
	gw := &fakeGateway{gate: make(chan struct{}), started: make(chan struct{}, 1)}
	c := newController(gw)

	reply, _ := c.Submit("hi")
	<-gw.started

	c.Close()
	if _, result := c.Submit("again"); result != chatservice.SubmitClosed {
		t.Fatalf("expected closed, got %s", result)
	}

	close(gw.gate)
	select {
	case turn, ok := <-reply:
		if ok {
			t.Fatalf("expected reply channel closed without a turn, got %+v", turn)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reply channel to close")
	}
	c.Wait()

	if c.Len() != 0 {
		t.Fatalf("closed session must not keep turns, len=%d", c.Len())
	}
}

func TestWatchAfterCloseRegistersNothing(t *testing.T) {
	c := newController(&fakeGateway{})
	c.Close()

	stop := c.Watch(func(chatservice.Event) {
		t.Error("closed controller must not deliver events")
	})
	if n := c.WatcherCount(); n != 0 {
		t.Fatalf("expected no watchers after close, got %d", n)
	}
	stop()
	stop()
}

func TestDraftClearedOnAccept(t *testing.T) {
	c := newController(&fakeGateway{})

	c.SetDraft("typing")
	if c.Draft() != "typing" {
		t.Fatalf("unexpected draft %q", c.Draft())
	}

	reply, _ := c.Submit("typing")
	if c.Draft() != "" {
		t.Fatalf("expected draft cleared, got %q", c.Draft())
	}
	waitReply(t, reply)
}
