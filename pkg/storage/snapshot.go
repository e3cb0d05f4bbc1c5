package storage

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"camwatch/pkg/storage/consts"
	"camwatch/pkg/storage/util"
	"camwatch/pkg/utils"
	imgutil "camwatch/pkg/utils/image"
)

const DefaultQuality = 90

type Snapshots struct {
	dir     string
	quality int
	// keep bounds the number of files; 0 keeps everything.
	keep   int
	logger *zap.SugaredLogger
}

func NewSnapshots(dir string, quality, keep int) (*Snapshots, error) {
	if dir == "" {
		return nil, fmt.Errorf("snapshot dir can not be empty")
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	if err := util.MkdirAll(dir); err != nil {
		return nil, err
	}

	return &Snapshots{dir: dir, quality: quality, keep: keep, logger: utils.GetLogger()}, nil
}

func (s *Snapshots) WithLogger(l *zap.SugaredLogger) *Snapshots {
	s.logger = l
	return s
}

func (s *Snapshots) Dir() string {
	return s.dir
}

func (s *Snapshots) PathFor(at time.Time) string {
	return filepath.Join(s.dir, at.Format(consts.SnapshotLayout)+consts.DefaultImageExt)
}

func (s *Snapshots) Save(img image.Image, at time.Time) (string, error) {
	if img == nil {
		return "", fmt.Errorf("nil frame: %w", ErrPersistence)
	}
	var buf bytes.Buffer
	if err := imgutil.EncodeJPEG(img, &buf, s.quality); err != nil {
		return "", fmt.Errorf("encode snapshot: %w: %w", ErrPersistence, err)
	}
	name := s.PathFor(at)
	if err := util.WriteFileAtomic(name, buf.Bytes(), consts.DefaultFilePerm); err != nil {
		return "", fmt.Errorf("write snapshot: %w: %w", ErrPersistence, err)
	}
	s.logger.Debugf("snapshot: wrote %s (%s)", name, humanize.Bytes(uint64(buf.Len())))

	if s.keep > 0 {
		if n, err := s.Prune(s.keep); err != nil {
			s.logger.Warnf("snapshot: prune: %s", err)
		} else if n > 0 {
			s.logger.Infof("snapshot: removed %d old snapshots", n)
		}
	}

	return name, nil
}

func (s *Snapshots) List() ([]string, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var res []string
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if !strings.HasSuffix(file.Name(), consts.DefaultImageExt) {
			continue
		}
		res = append(res, filepath.Join(s.dir, file.Name()))
	}
	// the timestamp layout sorts lexically in time order
	sort.Strings(res)

	return res, nil
}

func (s *Snapshots) Latest() (string, error) {
	list, err := s.List()
	if err != nil || len(list) == 0 {
		return "", err
	}
	return list[len(list)-1], nil
}

func (s *Snapshots) Prune(keep int) (int, error) {
	list, err := s.List()
	if err != nil {
		return 0, err
	}
	if keep <= 0 || len(list) <= keep {
		return 0, nil
	}
	removed := 0
	for _, name := range list[:len(list)-keep] {
		if err = os.Remove(name); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
