package storage

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"camwatch/pkg/storage/consts"
	"camwatch/pkg/storage/util"
	"camwatch/pkg/utils"
	"camwatch/pkg/utils/ps"
)

var ErrPersistence = errors.New("persistence failure")

type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Record struct {
	Timestamp     string     `json:"timestamp"`
	OK            bool       `json:"ok"`
	CameraIndex   int        `json:"camera_index"`
	Resolution    Resolution `json:"resolution"`
	Backend       string     `json:"backend"`
	LastFramePath string     `json:"last_frame_path"`
	Host          *ps.Host   `json:"host,omitempty"`
}

// Update carries the fields of one check outcome. A nil field keeps the
// value already on disk.
type Update struct {
	CameraIndex   *int
	Resolution    *Resolution
	Backend       *string
	LastFramePath *string
	Host          *ps.Host
}

func (r Record) Merge(ok bool, at time.Time, u Update) Record {
	r.Timestamp = at.Format(consts.TimestampLayout)
	r.OK = ok
	if u.CameraIndex != nil {
		r.CameraIndex = *u.CameraIndex
	}
	if u.Resolution != nil {
		r.Resolution = *u.Resolution
	}
	if u.Backend != nil {
		r.Backend = *u.Backend
	}
	if u.LastFramePath != nil {
		r.LastFramePath = *u.LastFramePath
	}
	if u.Host != nil {
		h := *u.Host
		r.Host = &h
	}
	return r
}

type StatusStore struct {
	path   string
	lock   sync.Mutex
	now    func() time.Time
	logger *zap.SugaredLogger
}

func NewStatusStore(path string) *StatusStore {
	return &StatusStore{
		path:   path,
		now:    time.Now,
		logger: utils.GetLogger(),
	}
}

func (s *StatusStore) WithLogger(l *zap.SugaredLogger) *StatusStore {
	s.logger = l
	return s
}

func (s *StatusStore) WithClock(now func() time.Time) *StatusStore {
	s.now = now
	return s
}

func (s *StatusStore) Path() string {
	return s.path
}

func (s *StatusStore) Load() (Record, error) {
	var r Record
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return r, fmt.Errorf("read status: %w", err)
	}
	if err = json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("unmarshal status: %w", err)
	}
	return r, nil
}

// Update merges one check outcome into the persisted record and rewrites it.
// Failures are logged and swallowed; the merged record is returned either way.
func (s *StatusStore) Update(ok bool, u Update) Record {
	s.lock.Lock()
	defer s.lock.Unlock()

	cur, err := s.Load()
	if err != nil {
		s.logger.Warnf("status: %s, starting from an empty record", err)
		cur = Record{}
	}
	next := cur.Merge(ok, s.now(), u)
	if err = s.write(next); err != nil {
		s.logger.Errorf("status: %s", err)
	}

	return next
}

func (s *StatusStore) write(r Record) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w: %w", ErrPersistence, err)
	}
	if err = util.WriteFileAtomic(s.path, data, consts.DefaultFilePerm); err != nil {
		return fmt.Errorf("write %s: %w: %w", s.path, ErrPersistence, err)
	}
	return nil
}
