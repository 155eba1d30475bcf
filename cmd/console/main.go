package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/medichat/docboard/internal/config"
	"github.com/medichat/docboard/internal/model/chat"
	rostermodel "github.com/medichat/docboard/internal/model/roster"
	"github.com/medichat/docboard/internal/prefs"
	"github.com/medichat/docboard/internal/service/session"
	"github.com/medichat/docboard/internal/transport"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	server := pflag.String("server", cfg.Console.ServerURL, "relay websocket URL")
	patient := pflag.String("patient", cfg.Console.PatientID, "patient id to open on connect")
	name := pflag.String("name", cfg.Console.DisplayName, "doctor display name")
	prefsPath := pflag.String("prefs", cfg.Console.PrefsPath, "preferences file")
	pflag.Parse()

	if *patient == "" {
		log.Fatal("a patient id is required (--patient or PATIENT_ID)")
	}

	preferences, err := prefs.Load(*prefsPath)
	if err != nil {
		log.Fatalf("failed to load preferences: %v", err)
	}

	channel, err := transport.Dial(ctx, *server)
	if err != nil {
		log.Fatalf("unable to connect to server: %v", err)
	}
	defer channel.Close()

	listener := &consoleListener{prefs: preferences}
	sess := session.New(channel, listener, session.Config{
		DisplayName:     *name,
		TargetPatientID: *patient,
	})

	go readCommands(ctx, sess, listener, *prefsPath, stop)

	if err := sess.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("session error: %v", err)
	}
}

// readCommands drives the session from stdin: /-prefixed commands, everything
// else is sent as a message. Each submitted line also counts as typing
// activity so the debounce path is exercised end to end.
func readCommands(ctx context.Context, sess *session.Session, listener *consoleListener, prefsPath string, quit func()) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			quit()
			return
		case line == "/patients":
			for _, p := range sess.Patients() {
				state := "offline"
				if p.Online {
					state = "online"
				}
				fmt.Printf("  %s  %-20s %-10s unread=%d\n", p.ID, p.Name, state, sess.UnreadCount(p.ID))
			}
		case line == "/clear":
			sess.ClearChat()
		case line == "/stats":
			stats := sess.Stats()
			fmt.Printf("  total=%d today=%d active=%d tracked=%d avg-response=%dms\n",
				stats.TotalMessages, stats.MessagesToday, stats.ActiveChats,
				stats.TrackedPatients, stats.AvgResponseMillis)
		case strings.HasPrefix(line, "/open "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/open "))
			sess.Open(id)
			showStamps := listener.snapshot().ShowTimestamps
			for _, msg := range sess.Messages(id) {
				printMessage(msg, showStamps)
			}
		case line == "/sound":
			on := listener.toggleSound()
			savePrefs(prefsPath, listener.snapshot())
			fmt.Printf("  sound notifications: %v\n", on)
		case line == "/timestamps":
			on := listener.toggleTimestamps()
			savePrefs(prefsPath, listener.snapshot())
			fmt.Printf("  timestamps: %v\n", on)
		case line == "/voice":
			fmt.Println("[error] Speech recognition not supported")
		case strings.HasPrefix(line, "/"):
			fmt.Println("  commands: /open <id>, /patients, /clear, /stats, /sound, /timestamps, /quit")
		default:
			sess.Keystroke()
			if err := sess.Send(ctx, line); err != nil {
				log.Printf("[console] send failed: %v", err)
			}
		}
	}
}

func savePrefs(path string, p prefs.Preferences) {
	if err := prefs.Save(path, p); err != nil {
		log.Printf("[console] failed to save preferences: %v", err)
	}
}

// consoleListener renders session callbacks as terminal lines. Callbacks run
// on the session goroutine while the command loop toggles preferences, so all
// prefs access goes through the mutex.
type consoleListener struct {
	session.NopListener
	mu    sync.Mutex
	prefs prefs.Preferences
}

func (l *consoleListener) snapshot() prefs.Preferences {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prefs
}

func (l *consoleListener) toggleSound() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prefs.SoundNotifications = !l.prefs.SoundNotifications
	return l.prefs.SoundNotifications
}

func (l *consoleListener) toggleTimestamps() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prefs.ShowTimestamps = !l.prefs.ShowTimestamps
	return l.prefs.ShowTimestamps
}

func (l *consoleListener) MessageAppended(patientID string, msg chat.Message, current bool) {
	if current {
		printMessage(msg, l.snapshot().ShowTimestamps)
	}
}

func (l *consoleListener) ChatCleared(patientID string) {
	fmt.Printf("--- chat with %s cleared ---\n", patientID)
}

func (l *consoleListener) RosterChanged(patients []rostermodel.Patient) {
	fmt.Printf("--- roster updated: %d patient(s) ---\n", len(patients))
}

func (l *consoleListener) TypingIndicator(patientID, displayName string, visible bool) {
	if visible {
		fmt.Printf("... %s is typing\n", displayName)
	}
}

func (l *consoleListener) UnreadChanged(patientID string, unread int) {
	if unread > 0 {
		fmt.Printf("--- %s: %d unread ---\n", patientID, unread)
	}
}

func (l *consoleListener) Notice(level session.NoticeLevel, text string) {
	fmt.Printf("[%s] %s\n", level, text)
}

func (l *consoleListener) Alert() {
	if l.snapshot().SoundNotifications {
		fmt.Print("\a")
	}
}

func printMessage(msg chat.Message, showTimestamps bool) {
	stamp := ""
	if showTimestamps {
		stamp = time.UnixMilli(msg.Timestamp).Format("15:04:05") + " "
	}
	status := ""
	if msg.Role == chat.RoleDoctor {
		status = " ✓"
		if msg.Status == chat.StatusDelivered {
			status = " ✓✓"
		}
	}
	fmt.Printf("%s%s: %s%s\n", stamp, msg.DisplayName, msg.Text, status)
}
