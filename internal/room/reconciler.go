// Package room keeps the timeline of the open chat room in step with its
// history pages and its live socket events.
package room

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ageniuscoder/mmchat/client/internal/chat"
	"github.com/ageniuscoder/mmchat/client/internal/history"
	"github.com/ageniuscoder/mmchat/client/internal/loop"
	"github.com/ageniuscoder/mmchat/client/internal/transport"
	"github.com/ageniuscoder/mmchat/client/internal/typing"
	"github.com/ageniuscoder/mmchat/client/internal/utils"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

var ErrNotInRoom = errors.New("no room is open")

const emitTimeout = 5 * time.Second

var validate = validator.New()

type State int

const (
	Idle State = iota
	Joining
	Active
)

func (s State) String() string {
	switch s {
	case Joining:
		return "joining"
	case Active:
		return "active"
	default:
		return "idle"
	}
}

// Deps are the collaborators of a Reconciler. Transport, History and Members
// are required; the rest default to no-ops.
type Deps struct {
	Transport transport.Transport
	History   history.Fetcher
	Members   MembershipSource
	Errors    ErrorSurface
	Scroll    ScrollHost
	Navigator Navigator
	Alerts    AlertClearer
}

type Options struct {
	UserID string
	// QuietPeriod is how long input must pause before typing-stop goes out.
	QuietPeriod time.Duration
	// ScrollThreshold is the distance from the top, in pixels, at which the
	// next older page is requested.
	ScrollThreshold int
	Logger          *slog.Logger
	Now             func() time.Time
}

// View is a snapshot of the open room.
type View struct {
	RoomID       string
	State        State
	Messages     []chat.Message
	RemoteTyping bool
	LocalTyping  bool
	Page         int
	TotalPages   int
	Loading      bool
	Members      []string
	Draft        string
}

// Reconciler must only be called from the goroutine that runs its executor.
// Use Session for a goroutine-safe handle.
type Reconciler struct {
	exec loop.Executor
	deps Deps
	opts Options
	log  *slog.Logger

	state   State
	roomID  string
	epoch   uint64
	members []string
	ctx     context.Context
	cancel  context.CancelFunc
	subs    *transport.Group

	timeline     Timeline
	cursor       history.Cursor
	typing       *typing.Debouncer
	remoteTyping bool
	draft        string

	detailsErr error
	historyErr error
}

func NewReconciler(exec loop.Executor, deps Deps, opts Options) *Reconciler {
	if deps.Errors == nil {
		deps.Errors = nopSurface{}
	}
	if deps.Scroll == nil {
		deps.Scroll = nopScroll{}
	}
	if deps.Navigator == nil {
		deps.Navigator = nopNavigator{}
	}
	if deps.Alerts == nil {
		deps.Alerts = nopAlerts{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	r := &Reconciler{exec: exec, deps: deps, opts: opts, log: opts.Logger}
	r.typing = typing.New(opts.QuietPeriod, exec, r.signalTyping)
	return r
}

func (r *Reconciler) State() State {
	return r.state
}

func (r *Reconciler) RoomID() string {
	return r.roomID
}

// Enter opens roomID. A different open room is torn down first; entering the
// open room again does nothing. An empty id leaves.
func (r *Reconciler) Enter(roomID string) {
	if roomID == "" {
		r.Leave()
		return
	}
	if r.state != Idle && r.roomID == roomID {
		return
	}
	r.Leave()

	r.epoch++
	r.roomID = roomID
	r.state = Joining
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.subs = &transport.Group{}

	epoch := r.epoch
	r.listen(epoch, chat.EventNewMessage, r.onNewMessage)
	r.listen(epoch, chat.EventStartTyping, func(data []byte) { r.onTyping(data, true) })
	r.listen(epoch, chat.EventStopTyping, func(data []byte) { r.onTyping(data, false) })
	r.listen(epoch, chat.EventAlert, r.onAlert)

	r.deps.Alerts.ClearAlert(roomID)
	r.log.Info("[room] entering", "room", roomID)

	r.fetchDetails(epoch, roomID)
	r.fetchPage(epoch, roomID, 1)
}

// Leave closes the open room. It is a no-op when no room is open.
func (r *Reconciler) Leave() {
	if r.state == Idle {
		return
	}
	roomID := r.roomID

	// Typing-stop still needs the room address.
	r.typing.Flush()
	r.emit(chat.EventChatLeft, chat.MembershipPayload{UserID: r.opts.UserID, Members: r.members})

	r.subs.Close()
	r.cancel()

	r.epoch++
	r.state = Idle
	r.roomID = ""
	r.members = nil
	r.subs = nil
	r.ctx, r.cancel = nil, nil
	r.timeline.Reset()
	r.cursor.Reset()
	r.remoteTyping = false
	r.draft = ""
	r.detailsErr = nil
	r.historyErr = nil

	r.log.Info("[room] left", "room", roomID)
}

// Scroll reports the viewport's distance from its top edge.
func (r *Reconciler) Scroll(offsetFromTop int) {
	if r.state == Idle || offsetFromTop > r.opts.ScrollThreshold {
		return
	}
	page, ok := r.cursor.Next()
	if !ok {
		// The first page failed; scrolling again retries it.
		if r.cursor.Page != 0 || r.cursor.InFlight() {
			return
		}
		page = 1
	}
	r.fetchPage(r.epoch, r.roomID, page)
}

// Input records the composer's draft and drives the typing signals. Typing
// signals wait until the room is Active, since they are addressed to its
// members.
func (r *Reconciler) Input(draft string) error {
	if r.state == Idle {
		return ErrNotInRoom
	}
	r.draft = draft
	if r.state == Active {
		r.typing.Input()
	}
	return nil
}

// Submit sends the draft. The message shows up once the server echoes it.
func (r *Reconciler) Submit() error {
	if r.state == Idle {
		return ErrNotInRoom
	}
	text := strings.TrimSpace(r.draft)
	if text == "" {
		return nil
	}
	out := chat.OutgoingMessage{ChatID: r.roomID, Members: r.members, Message: text}
	if err := utils.Validate(validate, out); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
	defer cancel()
	if err := r.deps.Transport.Emit(ctx, chat.EventNewMessage, out); err != nil {
		return err
	}
	r.draft = ""
	r.typing.Flush()
	return nil
}

func (r *Reconciler) View() View {
	v := View{
		RoomID:       r.roomID,
		State:        r.state,
		Messages:     r.timeline.Messages(),
		RemoteTyping: r.remoteTyping,
		LocalTyping:  r.typing.Typing(),
		Page:         r.cursor.Page,
		TotalPages:   r.cursor.TotalPages,
		Loading:      r.cursor.InFlight(),
		Draft:        r.draft,
	}
	if r.members != nil {
		v.Members = append([]string(nil), r.members...)
	}
	return v
}

func (r *Reconciler) current(epoch uint64) bool {
	return r.state != Idle && epoch == r.epoch
}

// listen subscribes h for the room of epoch. Transport callbacks arrive on
// foreign goroutines and are posted to the executor.
func (r *Reconciler) listen(epoch uint64, kind string, h func(data []byte)) {
	r.subs.Subscribe(r.deps.Transport, kind, func(data []byte) {
		r.exec.Post(func() {
			if r.current(epoch) {
				h(data)
			}
		})
	})
}

func (r *Reconciler) onNewMessage(data []byte) {
	var p chat.NewMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		r.log.Warn("[room] bad NEW_MESSAGE payload", "error", err)
		return
	}
	if p.ChatID != r.roomID {
		return
	}
	r.timeline.Append(p.Message.Normalize())
	r.deps.Scroll.ScrollToBottom()
}

func (r *Reconciler) onTyping(data []byte, start bool) {
	var p chat.TypingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		r.log.Warn("[room] bad typing payload", "error", err)
		return
	}
	if p.ChatID != r.roomID {
		return
	}
	r.remoteTyping = start
}

func (r *Reconciler) onAlert(data []byte) {
	var p chat.AlertPayload
	if err := json.Unmarshal(data, &p); err != nil {
		r.log.Warn("[room] bad ALERT payload", "error", err)
		return
	}
	if p.ChatID != r.roomID {
		return
	}
	r.timeline.Append(chat.NewSystemMessage(r.roomID, p.Message, r.opts.Now()))
	r.deps.Scroll.ScrollToBottom()
}

func (r *Reconciler) fetchDetails(epoch uint64, roomID string) {
	members := r.deps.Members
	r.exec.Go(r.ctx, func(ctx context.Context) func() {
		ids, err := members.Members(ctx, roomID)
		return func() { r.onDetails(epoch, roomID, ids, err) }
	})
}

func (r *Reconciler) onDetails(epoch uint64, roomID string, members []string, err error) {
	if !r.current(epoch) || roomID != r.roomID {
		return
	}
	if err != nil {
		r.log.Error("[room] room details failed", "room", roomID, "error", err)
		r.detailsErr = err
		r.report()
		r.deps.Navigator.Navigate("/")
		r.Leave()
		return
	}
	r.detailsErr = nil
	r.members = members
	r.emit(chat.EventChatJoined, chat.MembershipPayload{UserID: r.opts.UserID, Members: members})
	r.state = Active
	r.log.Info("[room] joined", "room", roomID, "members", len(members))
}

func (r *Reconciler) fetchPage(epoch uint64, roomID string, page int) {
	seq := r.cursor.Begin(page)
	fetcher := r.deps.History
	r.exec.Go(r.ctx, func(ctx context.Context) func() {
		p, err := fetcher.FetchPage(ctx, roomID, page)
		return func() { r.onPage(epoch, roomID, seq, page, p, err) }
	})
}

func (r *Reconciler) onPage(epoch uint64, roomID string, seq uint64, page int, p history.Page, err error) {
	if !r.current(epoch) || roomID != r.roomID {
		return
	}
	if err != nil {
		if !r.cursor.Fail(seq) {
			return
		}
		r.log.Warn("[room] history page failed", "room", roomID, "page", page, "error", err)
		r.historyErr = err
		r.report()
		return
	}
	if !r.cursor.Accept(seq, page, p.TotalPages) {
		return
	}
	msgs := make([]chat.Message, len(p.Messages))
	for i, m := range p.Messages {
		msgs[i] = m.Normalize()
	}
	anchor, hasAnchor := r.timeline.First()
	r.timeline.Prepend(msgs)
	if r.historyErr != nil {
		r.historyErr = nil
		r.report()
	}
	if hasAnchor {
		r.deps.Scroll.RestoreAnchor(anchor.ID)
	}
}

func (r *Reconciler) report() {
	r.deps.Errors.Report([]chat.ErrorState{
		{IsError: r.detailsErr != nil, Err: r.detailsErr},
		{IsError: r.historyErr != nil, Err: r.historyErr},
	})
}

func (r *Reconciler) signalTyping(start bool) {
	kind := chat.EventStopTyping
	if start {
		kind = chat.EventStartTyping
	}
	r.emit(kind, chat.TypingPayload{ChatID: r.roomID, Members: r.members})
}

func (r *Reconciler) emit(kind string, payload any) {
	ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
	defer cancel()
	if err := r.deps.Transport.Emit(ctx, kind, payload); err != nil {
		r.log.Warn("[room] emit failed", "event", kind, "room", r.roomID, "error", err)
	}
}
