package events

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Vovarama1992/voice_mail/internal/ports"
)

func TestPublishDeliversPayloadUnmodified(t *testing.T) {
	bus := NewBus(nil, DefaultContracts()...)

	var got []Event
	bus.Subscribe(ports.CmdReadEmail, func(ev Event) { got = append(got, ev) })

	id := 2
	n, err := bus.Publish(Event{Action: ports.CmdReadEmail, Payload: ports.Command{Command: ports.CmdReadEmail, EmailID: &id}})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if n != 1 || len(got) != 1 {
		t.Fatalf("delivered %d/%d, want 1", n, len(got))
	}
	if got[0].Payload.EmailID == nil || *got[0].Payload.EmailID != 2 {
		t.Errorf("EmailID = %v", got[0].Payload.EmailID)
	}
	if got[0].At.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestPublishUnknownAction(t *testing.T) {
	bus := NewBus(nil, DefaultContracts()...)
	called := false
	bus.SubscribeAll(func(Event) { called = true })

	for _, action := range []string{"action_make_coffee", ports.CmdSearchEmails, ports.CmdNavigateInbox} {
		if _, err := bus.Publish(Event{Action: action}); !errors.Is(err, ErrUnknownAction) {
			t.Errorf("%s: err = %v", action, err)
		}
	}
	if called {
		t.Error("unknown actions must not reach subscribers")
	}
}

func TestSubscribersAreScopedAndRemovable(t *testing.T) {
	bus := NewBus(nil, DefaultContracts()...)

	var archive, all int
	unsub := bus.Subscribe(ports.CmdArchive, func(Event) { archive++ })
	bus.SubscribeAll(func(Event) { all++ })

	bus.Publish(Event{Action: ports.CmdArchive})
	bus.Publish(Event{Action: ports.CmdDelete})
	unsub()
	bus.Publish(Event{Action: ports.CmdArchive})

	if archive != 1 || all != 3 {
		t.Errorf("archive=%d all=%d, want 1/3", archive, all)
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus(nil, DefaultContracts()...)
	n, err := bus.Publish(Event{Action: ports.CmdGoBack})
	if err != nil || n != 0 {
		t.Errorf("n=%d err=%v", n, err)
	}
}

func TestRegisterPluginContract(t *testing.T) {
	bus := NewBus(nil)
	if err := bus.Register(Contract{}); err == nil {
		t.Error("empty action should be rejected")
	}
	if err := bus.Register(Contract{Action: "action_star", Fields: []string{"emailId"}}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := bus.Publish(Event{Action: "action_star"}); err != nil {
		t.Errorf("Publish after register: %v", err)
	}
}

func TestNewBusLogsDroppedContracts(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	bus := NewBus(zap.New(core),
		Contract{Description: "nameless"},
		Contract{Action: ports.CmdGoBack},
	)

	if got := bus.Contracts(); len(got) != 1 || got[0].Action != ports.CmdGoBack {
		t.Errorf("contracts = %+v", got)
	}
	dropped := logs.FilterMessage("contract dropped").All()
	if len(dropped) != 1 || dropped[0].ContextMap()["description"] != "nameless" {
		t.Errorf("logged %+v", logs.All())
	}
}

func TestDefaultContractsAreKnownCommands(t *testing.T) {
	bus := NewBus(nil, DefaultContracts()...)
	prev := ""
	for _, c := range bus.Contracts() {
		if !ports.KnownCommand(c.Action) {
			t.Errorf("%s is not in the command grammar", c.Action)
		}
		if c.Action <= prev {
			t.Errorf("contracts not sorted at %s", c.Action)
		}
		prev = c.Action
	}
}
