// Package console implements the configuration variable ("cvar") layer:
// typed, flag-guarded runtime variables that participate in replication,
// persistence and access control. The store is dependency-injected; it is
// owned by the server, not a process-wide singleton.
package console

import (
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// Flags guard who may read, write, replicate or persist a cvar.
type Flags uint32

const (
	// Archive cvars are handed to the config saver at shutdown.
	Archive Flags = 1 << iota
	// Replicated cvars are broadcast to clients on join and on change.
	Replicated
	// ReadOnly cvars reject Set after registration.
	ReadOnly
	// Cheat marks cheat cvars. Set does not check this flag.
	Cheat
	// NoRcon cvars cannot be changed through remote console sessions.
	NoRcon
)

// Errors returned by Store.Set.
var (
	ErrUnknownCvar = errors.New("console: unknown cvar")
	ErrReadOnly    = errors.New("console: cvar is read-only")
	ErrBadValue    = errors.New("console: bad cvar value")
	ErrNoRcon     = errors.New("console: cvar not settable over rcon")
)

// Cvar is one typed variable. The canonical representation is the string
// value; typed accessors parse on demand and Set validates eagerly.
type Cvar struct {
	name     string
	help     string
	flags    Flags
	value    string
	def      string
	validate func(string) error
	onChange func(string)
}

// Name returns the cvar's registered name.
func (c *Cvar) Name() string { return c.name }

// Help returns the description shown by the console.
func (c *Cvar) Help() string { return c.help }

// Flags returns the guard flags.
func (c *Cvar) Flags() Flags { return c.flags }

// String returns the current value.
func (c *Cvar) String() string { return c.value }

// Default returns the registration-time value.
func (c *Cvar) Default() string { return c.def }

// Int parses the value as an integer, 0 on failure.
func (c *Cvar) Int() int {
	v, _ := strconv.Atoi(c.value)
	return v
}

// Float parses the value as a float, 0 on failure.
func (c *Cvar) Float() float64 {
	v, _ := strconv.ParseFloat(c.value, 64)
	return v
}

// Bool parses the value as a boolean; any nonzero integer is true.
func (c *Cvar) Bool() bool {
	if v, err := strconv.ParseBool(c.value); err == nil {
		return v
	}
	return c.Int() != 0
}

// OnChange registers a callback fired after every successful Set.
func (c *Cvar) OnChange(fn func(value string)) { c.onChange = fn }

// Store owns a set of cvars. Lifecycle: the server creates it, registers
// its variables, runs, and passes the Archive set to a saver at shutdown.
type Store struct {
	vars map[string]*Cvar
}

// NewStore returns an empty cvar store.
func NewStore() *Store {
	return &Store{vars: make(map[string]*Cvar)}
}

// Register adds a string cvar. Registering a duplicate name replaces the
// definition but keeps the previous value; that supports re-exec of config
// scripts.
func (s *Store) Register(name, def string, flags Flags, help string) *Cvar {
	c := &Cvar{name: name, help: help, flags: flags, value: def, def: def}
	if prev, ok := s.vars[name]; ok {
		c.value = prev.value
	}
	s.vars[name] = c
	return c
}

// RegisterInt adds an integer cvar with a validated range. min > max
// disables the range check.
func (s *Store) RegisterInt(name string, def int, flags Flags, help string, min, max int) *Cvar {
	c := s.Register(name, strconv.Itoa(def), flags, help)
	c.validate = func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(ErrBadValue, name)
		}
		if min <= max && (n < min || n > max) {
			return errors.Wrapf(ErrBadValue, "%s: %d out of range", name, n)
		}
		return nil
	}
	return c
}

// RegisterFloat adds a float cvar with a validated range.
func (s *Store) RegisterFloat(name string, def float64, flags Flags, help string, min, max float64) *Cvar {
	c := s.Register(name, strconv.FormatFloat(def, 'g', -1, 64), flags, help)
	c.validate = func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrap(ErrBadValue, name)
		}
		if min <= max && (f < min || f > max) {
			return errors.Wrapf(ErrBadValue, "%s: %g out of range", name, f)
		}
		return nil
	}
	return c
}

// RegisterBool adds a boolean cvar.
func (s *Store) RegisterBool(name string, def bool, flags Flags, help string) *Cvar {
	v := "0"
	if def {
		v = "1"
	}
	c := s.Register(name, v, flags, help)
	c.validate = func(val string) error {
		if _, err := strconv.ParseBool(val); err != nil {
			if _, ierr := strconv.Atoi(val); ierr != nil {
				return errors.Wrap(ErrBadValue, name)
			}
		}
		return nil
	}
	return c
}

// Find returns the cvar or nil.
func (s *Store) Find(name string) *Cvar { return s.vars[name] }

// Set assigns a value, honoring the guard flags. fromRcon marks writes
// arriving through a remote console session.
func (s *Store) Set(name, value string, fromRcon bool) error {
	c := s.vars[name]
	if c == nil {
		return errors.Wrap(ErrUnknownCvar, name)
	}
	if c.flags&ReadOnly != 0 {
		return errors.Wrap(ErrReadOnly, name)
	}
	if fromRcon && c.flags&NoRcon != 0 {
		return errors.Wrap(ErrNoRcon, name)
	}
	if c.validate != nil {
		if err := c.validate(value); err != nil {
			return err
		}
	}
	if c.value == value {
		return nil
	}
	c.value = value
	if c.onChange != nil {
		c.onChange(value)
	}
	return nil
}

// Names returns every registered name, sorted.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.vars))
	for n := range s.vars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// WithFlags returns the cvars carrying all the given flags, sorted by
// name. Used for CvarMod replication (Replicated) and the shutdown saver
// (Archive).
func (s *Store) WithFlags(flags Flags) []*Cvar {
	var out []*Cvar
	for _, name := range s.Names() {
		c := s.vars[name]
		if c.flags&flags == flags {
			out = append(out, c)
		}
	}
	return out
}
