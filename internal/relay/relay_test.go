package relay_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/medichat/docboard/internal/model/chat"
	"github.com/medichat/docboard/internal/model/roster"
	"github.com/medichat/docboard/internal/relay"
	"github.com/medichat/docboard/internal/transport"
)

func startRelay(t *testing.T) (*relay.Hub, *httptest.Server, string) {
	t.Helper()
	hub := relay.NewHub()
	srv := httptest.NewServer(relay.NewRouter(hub))
	t.Cleanup(srv.Close)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	return hub, srv, wsURL
}

// waitFor drains the event stream until match returns true or the deadline
// passes. Interleaved presence refreshes make exact sequences brittle.
func waitFor(t *testing.T, ch transport.Channel, match func(transport.Event) bool) transport.Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-ch.Events():
			if !ok {
				t.Fatal("event stream closed while waiting")
			}
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("timed out waiting for event")
		}
	}
}

func dialAndJoin(t *testing.T, url string, req transport.JoinRequest) *transport.WebSocketClient {
	t.Helper()
	ctx := context.Background()

	ch, err := transport.Dial(ctx, url)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ch.Close() })

	waitFor(t, ch, func(ev transport.Event) bool {
		_, ok := ev.(transport.Connected)
		return ok
	})
	if err := ch.Join(ctx, req); err != nil {
		t.Fatalf("join: %v", err)
	}
	// Every processed join triggers a presence broadcast; seeing one means the
	// hub has registered this connection.
	waitFor(t, ch, func(ev transport.Event) bool {
		_, ok := ev.(transport.PresenceEvent)
		return ok
	})
	return ch
}

func TestPatientJoinAnnouncesToDoctor(t *testing.T) {
	_, _, wsURL := startRelay(t)

	doctor := dialAndJoin(t, wsURL, transport.JoinRequest{
		Role: chat.RoleDoctor, PatientID: "P1", DisplayName: "Dr. Dharshini",
	})
	dialAndJoin(t, wsURL, transport.JoinRequest{
		Role: chat.RolePatient, PatientID: "P1", DisplayName: "Asha",
		Profile: &roster.Profile{Name: "Asha Rao", Age: 34, Condition: "Migraine"},
	})

	ev := waitFor(t, doctor, func(ev transport.Event) bool {
		lifecycle, ok := ev.(transport.PatientLifecycleEvent)
		return ok && lifecycle.Type == transport.LifecycleConnected
	})
	lifecycle := ev.(transport.PatientLifecycleEvent)
	if lifecycle.PatientID != "P1" || lifecycle.Profile == nil || lifecycle.Profile.Name != "Asha Rao" {
		t.Fatalf("unexpected lifecycle event: %+v", lifecycle)
	}

	waitFor(t, doctor, func(ev transport.Event) bool {
		presence, ok := ev.(transport.PresenceEvent)
		if !ok {
			return false
		}
		patients := 0
		for _, u := range presence.Users {
			if u.Role == chat.RolePatient {
				patients++
			}
		}
		return patients == 1
	})
}

func TestMessageEchoesToSender(t *testing.T) {
	_, _, wsURL := startRelay(t)
	ctx := context.Background()

	doctor := dialAndJoin(t, wsURL, transport.JoinRequest{
		Role: chat.RoleDoctor, PatientID: "P1", DisplayName: "Dr. Dharshini",
	})
	patient := dialAndJoin(t, wsURL, transport.JoinRequest{
		Role: chat.RolePatient, PatientID: "P1", DisplayName: "Asha",
	})

	if err := doctor.SendMessage(ctx, transport.OutboundMessage{Text: "take rest"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	check := func(name string, ch transport.Channel) {
		ev := waitFor(t, ch, func(ev transport.Event) bool {
			_, ok := ev.(transport.MessageEvent)
			return ok
		})
		msg := ev.(transport.MessageEvent).Message
		if msg.Text != "take rest" || msg.Role != chat.RoleDoctor || msg.PatientID != "P1" {
			t.Fatalf("%s got unexpected echo: %+v", name, msg)
		}
		if msg.Status != chat.StatusDelivered {
			t.Fatalf("%s echo status = %q, want delivered", name, msg.Status)
		}
		if msg.Timestamp == 0 {
			t.Fatalf("%s echo missing server timestamp", name)
		}
	}
	check("sender", doctor)
	check("patient", patient)
}

func TestTypingForwardedToOtherParty(t *testing.T) {
	_, _, wsURL := startRelay(t)
	ctx := context.Background()

	doctor := dialAndJoin(t, wsURL, transport.JoinRequest{
		Role: chat.RoleDoctor, PatientID: "P1", DisplayName: "Dr. Dharshini",
	})
	patient := dialAndJoin(t, wsURL, transport.JoinRequest{
		Role: chat.RolePatient, PatientID: "P1", DisplayName: "Asha",
	})

	if err := patient.SendTyping(ctx, true); err != nil {
		t.Fatalf("typing: %v", err)
	}

	ev := waitFor(t, doctor, func(ev transport.Event) bool {
		_, ok := ev.(transport.TypingEvent)
		return ok
	})
	typing := ev.(transport.TypingEvent)
	if typing.Role != chat.RolePatient || !typing.IsTyping || typing.PatientID != "P1" || typing.DisplayName != "Asha" {
		t.Fatalf("unexpected typing event: %+v", typing)
	}
}

func TestGetPatientsSnapshotOmitsProfiles(t *testing.T) {
	_, _, wsURL := startRelay(t)
	ctx := context.Background()

	doctor := dialAndJoin(t, wsURL, transport.JoinRequest{
		Role: chat.RoleDoctor, PatientID: "P1", DisplayName: "Dr. Dharshini",
	})
	dialAndJoin(t, wsURL, transport.JoinRequest{
		Role: chat.RolePatient, PatientID: "P1", DisplayName: "Asha",
		Profile: &roster.Profile{Name: "Asha Rao", Condition: "Migraine"},
	})

	// Wait until the patient's join has registered before asking.
	waitFor(t, doctor, func(ev transport.Event) bool {
		lifecycle, ok := ev.(transport.PatientLifecycleEvent)
		return ok && lifecycle.Type == transport.LifecycleConnected
	})

	if err := doctor.RequestPatients(ctx); err != nil {
		t.Fatalf("getPatients: %v", err)
	}

	ev := waitFor(t, doctor, func(ev transport.Event) bool {
		_, ok := ev.(transport.PatientsListEvent)
		return ok
	})
	list := ev.(transport.PatientsListEvent).Patients
	if len(list) != 1 {
		t.Fatalf("snapshot = %+v, want one patient", list)
	}
	p := list[0]
	if p.ID != "P1" || p.Name != "Asha Rao" || p.Condition != "Migraine" || !p.Online {
		t.Fatalf("unexpected snapshot entry: %+v", p)
	}
	if p.Profile != nil {
		t.Fatal("snapshot must not carry profiles; they travel via lifecycle events")
	}
}

func TestPatientDisconnectMarksOffline(t *testing.T) {
	hub, _, wsURL := startRelay(t)

	doctor := dialAndJoin(t, wsURL, transport.JoinRequest{
		Role: chat.RoleDoctor, PatientID: "P1", DisplayName: "Dr. Dharshini",
	})
	patient := dialAndJoin(t, wsURL, transport.JoinRequest{
		Role: chat.RolePatient, PatientID: "P1", DisplayName: "Asha",
	})

	waitFor(t, doctor, func(ev transport.Event) bool {
		lifecycle, ok := ev.(transport.PatientLifecycleEvent)
		return ok && lifecycle.Type == transport.LifecycleConnected
	})

	patient.Close()

	waitFor(t, doctor, func(ev transport.Event) bool {
		lifecycle, ok := ev.(transport.PatientLifecycleEvent)
		return ok && lifecycle.Type == transport.LifecycleDisconnected
	})

	snapshot := hub.Snapshot()
	if len(snapshot) != 1 || snapshot[0].Online {
		t.Fatalf("snapshot after disconnect = %+v, want P1 offline", snapshot)
	}
}

func TestInvalidJoinAnswersError(t *testing.T) {
	_, _, wsURL := startRelay(t)
	ctx := context.Background()

	ch, err := transport.Dial(ctx, wsURL)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ch.Close()

	if err := ch.Join(ctx, transport.JoinRequest{Role: "nurse", PatientID: "P1"}); err != nil {
		t.Fatalf("join: %v", err)
	}

	waitFor(t, ch, func(ev transport.Event) bool {
		errEv, ok := ev.(transport.ErrorMessageEvent)
		return ok && strings.Contains(errEv.Text, "role")
	})
}

func TestUnknownRouteAnswersJSONError(t *testing.T) {
	_, srv, _ := startRelay(t)

	resp, err := http.Get(srv.URL + "/api/nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q, want application/json", ct)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "not found" {
		t.Fatalf("error body = %q, want %q", body.Error, "not found")
	}
}

func TestPatientsRESTEndpoint(t *testing.T) {
	_, srv, wsURL := startRelay(t)

	dialAndJoin(t, wsURL, transport.JoinRequest{
		Role: chat.RolePatient, PatientID: "P1", DisplayName: "Asha",
	})

	// The join is processed asynchronously; poll briefly.
	var list []roster.Patient
	deadline := time.Now().Add(3 * time.Second)
	for {
		resp, err := http.Get(srv.URL + "/api/patients")
		if err != nil {
			t.Fatalf("GET /api/patients: %v", err)
		}
		err = json.NewDecoder(resp.Body).Decode(&list)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(list) == 1 || time.Now().After(deadline) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if len(list) != 1 || list[0].ID != "P1" {
		t.Fatalf("roster = %+v, want P1", list)
	}
}
