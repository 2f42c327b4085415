package settings

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

var (
	keySettings  = []byte("settings")
	keyHostAppIP = []byte("info/host_app_ip")
	keyUID       = []byte("info/uid")
)

// Store persists the node settings and identity in badger and keeps the current values
// in memory for readers on the receive path.
type Store struct {
	db *badger.DB

	mu        sync.RWMutex
	current   Settings
	hostAppIP string
	uid       [6]byte

	changed chan struct{}
}

// Open opens the store at path. An empty path keeps everything in memory.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{})
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store at %q: %w", path, err)
	}

	s, err := OpenDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenDB loads the settings from an already opened database. Missing settings fall back
// to Defaults.
func OpenDB(db *badger.DB) (*Store, error) {
	s := &Store{
		db:      db,
		current: Defaults(),
		changed: make(chan struct{}, 1),
	}

	err := db.View(func(txn *badger.Txn) error {
		if err := getJSON(txn, keySettings, &s.current); err != nil {
			return err
		}
		if v, err := getValue(txn, keyHostAppIP); err != nil {
			return err
		} else if v != nil {
			s.hostAppIP = string(v)
		}
		if v, err := getValue(txn, keyUID); err != nil {
			return err
		} else if len(v) == len(s.uid) {
			copy(s.uid[:], v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if err := s.current.Validate(); err != nil {
		log.Warnf("stored settings are invalid, using defaults: %v", err)
		s.current = Defaults()
	}

	if s.uid == ([6]byte{}) {
		s.uid = deriveUID()
		if err := s.put(keyUID, s.uid[:]); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Current returns a copy of the active settings.
func (s *Store) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Save validates next and persists it as a whole. Nothing is changed on error.
func (s *Store) Save(next Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := s.put(keySettings, data); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = next.Clone()
	s.mu.Unlock()

	log.Infof("settings saved")
	s.notify()
	return nil
}

// Reset erases everything but the device identity and restores the defaults.
func (s *Store) Reset() error {
	if err := s.db.DropAll(); err != nil {
		return fmt.Errorf("failed to erase settings store: %w", err)
	}

	s.mu.Lock()
	s.current = Defaults()
	s.hostAppIP = ""
	uid := s.uid
	s.mu.Unlock()

	if err := s.put(keyUID, uid[:]); err != nil {
		return err
	}

	log.Infof("settings reset to factory defaults")
	s.notify()
	return nil
}

func (s *Store) UID() [6]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uid
}

func (s *Store) HostAppIP() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hostAppIP
}

// SetHostAppIP remembers the address of the last controller that queried the node.
func (s *Store) SetHostAppIP(ip string) error {
	s.mu.RLock()
	same := s.hostAppIP == ip
	s.mu.RUnlock()
	if same {
		return nil
	}

	if err := s.put(keyHostAppIP, []byte(ip)); err != nil {
		return err
	}
	s.mu.Lock()
	s.hostAppIP = ip
	s.mu.Unlock()
	return nil
}

// Changed fires after settings were saved or reset.
func (s *Store) Changed() <-chan struct{} {
	return s.changed
}

func (s *Store) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *Store) put(key, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func getValue(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return item.ValueCopy(nil)
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := getValue(txn, key)
	if err != nil || data == nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

// deriveUID uses the first hardware address of the host, or a random locally
// administered address when there is none.
func deriveUID() [6]byte {
	var uid [6]byte
	ifaces, err := net.Interfaces()
	if err == nil {
		for _, iface := range ifaces {
			if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) != len(uid) {
				continue
			}
			copy(uid[:], iface.HardwareAddr)
			return uid
		}
	}

	if _, err := rand.Read(uid[:]); err != nil {
		log.Errorf("failed to generate device uid: %v", err)
	}
	uid[0] = uid[0]&0xFE | 0x02
	return uid
}

// badgerLogger routes badger's chatter through logrus one level quieter.
type badgerLogger struct{}

func (badgerLogger) Errorf(f string, v ...interface{})   { log.Errorf("badger: "+f, v...) }
func (badgerLogger) Warningf(f string, v ...interface{}) { log.Warnf("badger: "+f, v...) }
func (badgerLogger) Infof(f string, v ...interface{})    { log.Debugf("badger: "+f, v...) }
func (badgerLogger) Debugf(f string, v ...interface{})   { log.Tracef("badger: "+f, v...) }
