// Package dispatch binds UI event names to petition store calls.
package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ASHISH26940/petitiondesk/internal/petition"
	"github.com/ASHISH26940/petitiondesk/internal/store"
)

// Event names bound by New, matching the functions the UI calls.
const (
	EventNew    = "newPetition"
	EventList   = "listPetitions"
	EventGet    = "getPetition"
	EventEdit   = "editPetition"
	EventDelete = "deletePetition"
)

// Error kinds carried in a Response.
const (
	KindNotFound     = "not_found"
	KindValidation   = "validation"
	KindPersistence  = "persistence"
	KindBadRequest   = "bad_request"
	KindUnknownEvent = "unknown_event"
	KindInternal     = "internal"
)

// PetitionStore is the subset of the store the dispatcher drives.
type PetitionStore interface {
	Create(f petition.Fields) (petition.Record, error)
	Get(id string) (petition.Record, error)
	List() []petition.Record
	Update(id string, p petition.Patch) (petition.Record, error)
	Delete(id string) error
}

// Command is one UI event with its positional string arguments.
type Command struct {
	Event string   `json:"event"`
	Args  []string `json:"args,omitempty"`
}

// Error describes a failed command.
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Response is the plain-data result of a command.
type Response struct {
	OK        bool              `json:"ok"`
	Petition  *petition.Record  `json:"petition,omitempty"`
	Petitions []petition.Record `json:"petitions,omitempty"`
	Error     *Error            `json:"error,omitempty"`
}

// HandlerFunc handles one bound event.
type HandlerFunc func(args []string) (Response, error)

// Dispatcher routes commands to bound handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	store    PetitionStore
	logger   *zap.Logger
}

// New returns a Dispatcher with the petition events bound to st.
func New(st PetitionStore, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		store:    st,
		logger:   logger,
	}
	d.Bind(EventNew, d.newPetition)
	d.Bind(EventList, d.listPetitions)
	d.Bind(EventGet, d.getPetition)
	d.Bind(EventEdit, d.editPetition)
	d.Bind(EventDelete, d.deletePetition)
	return d
}

// Bind registers fn under name, replacing any previous binding.
func (d *Dispatcher) Bind(name string, fn HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = fn
}

// Events returns the bound event names.
func (d *Dispatcher) Events() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	return names
}

// DispatchJSON decodes a Command and dispatches it.
func (d *Dispatcher) DispatchJSON(data []byte) Response {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return failure(KindBadRequest, fmt.Sprintf("invalid command: %v", err))
	}
	return d.Dispatch(cmd)
}

// Dispatch runs the handler bound to cmd.Event. It never panics.
func (d *Dispatcher) Dispatch(cmd Command) (resp Response) {
	d.mu.RLock()
	fn, ok := d.handlers[cmd.Event]
	d.mu.RUnlock()
	if !ok {
		return failure(KindUnknownEvent, fmt.Sprintf("no handler bound to %q", cmd.Event))
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panicked", zap.String("event", cmd.Event), zap.Any("panic", r))
			resp = failure(KindInternal, "internal error")
		}
	}()

	resp, err := fn(cmd.Args)
	if err != nil {
		kind := Classify(err)
		if kind == KindPersistence || kind == KindInternal {
			d.logger.Error("event failed", zap.String("event", cmd.Event), zap.Error(err))
		} else {
			d.logger.Debug("event rejected", zap.String("event", cmd.Event), zap.Error(err))
		}
		return failure(kind, err.Error())
	}
	resp.OK = true
	return resp
}

// Classify maps an error to a Response error kind.
func Classify(err error) string {
	var (
		verr *petition.ValidationError
		perr *store.PersistenceError
		aerr *argError
	)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return KindNotFound
	case errors.As(err, &verr):
		return KindValidation
	case errors.As(err, &perr):
		return KindPersistence
	case errors.As(err, &aerr):
		return KindBadRequest
	default:
		return KindInternal
	}
}

func failure(kind, msg string) Response {
	return Response{Error: &Error{Kind: kind, Message: msg}}
}

type argError struct {
	want, got int
}

func (e *argError) Error() string {
	return fmt.Sprintf("expected %d arguments, got %d", e.want, e.got)
}

func wantArgs(args []string, n int) error {
	if len(args) != n {
		return &argError{want: n, got: len(args)}
	}
	return nil
}

func (d *Dispatcher) newPetition(args []string) (Response, error) {
	if err := wantArgs(args, 2); err != nil {
		return Response{}, err
	}
	rec, err := d.store.Create(petition.Fields{Name: args[0], Description: args[1]})
	if err != nil {
		return Response{}, err
	}
	return Response{Petition: &rec}, nil
}

func (d *Dispatcher) listPetitions(args []string) (Response, error) {
	if err := wantArgs(args, 0); err != nil {
		return Response{}, err
	}
	return Response{Petitions: d.store.List()}, nil
}

func (d *Dispatcher) getPetition(args []string) (Response, error) {
	if err := wantArgs(args, 1); err != nil {
		return Response{}, err
	}
	rec, err := d.store.Get(args[0])
	if err != nil {
		return Response{}, err
	}
	return Response{Petition: &rec}, nil
}

func (d *Dispatcher) editPetition(args []string) (Response, error) {
	if err := wantArgs(args, 3); err != nil {
		return Response{}, err
	}
	name, desc := args[1], args[2]
	rec, err := d.store.Update(args[0], petition.Patch{Name: &name, Description: &desc})
	if err != nil {
		return Response{}, err
	}
	return Response{Petition: &rec}, nil
}

func (d *Dispatcher) deletePetition(args []string) (Response, error) {
	if err := wantArgs(args, 1); err != nil {
		return Response{}, err
	}
	if err := d.store.Delete(args[0]); err != nil {
		return Response{}, err
	}
	return Response{}, nil
}
