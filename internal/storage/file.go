package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "nftbot/pkg/logx"
)

// fileStore keeps one append-only JSON Lines file per kind:
//
//   - <dir>/sales.jsonl
//   - <dir>/listings.jsonl
//
// Each line is {"id": "..."}. The whole set is loaded on first use; lookups
// are served from memory and every Record appends + fsyncs one line.
type fileStore struct {
	dir string
	log logx.Logger

	mu      sync.Mutex
	ledgers map[Kind]*fileLedger
	closed  bool
}

type fileLedger struct {
	log logx.Logger

	mu  sync.Mutex
	f   *os.File
	ids map[string]struct{}
}

type fileRecord struct {
	ID string `json:"id"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	dir := strings.TrimSpace(cfg.Path)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &fileStore{dir: dir, log: log, ledgers: map[Kind]*fileLedger{}}, nil
}

func (s *fileStore) Ledger(kind Kind) (Ledger, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("%w: kind %q", ErrInvalidInput, kind)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if l, ok := s.ledgers[kind]; ok {
		return l, nil
	}

	log := s.log.With(logx.String("kind", string(kind)))
	ids := map[string]struct{}{}

	// Import TinyDB files left by earlier deployments (<kind>.json), which
	// lived in the working directory unless moved next to the journal.
	for _, legacy := range legacyPaths(s.dir, kind) {
		if n, err := importTinyDB(legacy, ids); err == nil && n > 0 {
			log.Info("imported legacy ledger", logx.String("path", legacy), logx.Int("entries", n))
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("legacy ledger unreadable; ignoring", logx.String("path", legacy), logx.Err(err))
		}
	}

	path := filepath.Join(s.dir, string(kind)+".jsonl")
	res, err := replayJournal(path, ids)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read ledger %s: %w", path, err)
	}
	if res.skipped > 0 {
		log.Warn("skipped corrupt ledger lines", logx.String("path", path), logx.Int("lines", res.skipped))
	}
	if res.torn {
		// Cut the unterminated tail so the next append starts on a fresh line.
		if err := os.Truncate(path, res.validLen); err != nil {
			return nil, fmt.Errorf("repair ledger %s: %w", path, err)
		}
		log.Warn("truncated torn ledger tail", logx.String("path", path), logx.Int64("offset", res.validLen))
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	l := &fileLedger{log: log, f: f, ids: ids}
	s.ledgers[kind] = l
	log.Debug("ledger opened", logx.String("path", path), logx.Int("entries", len(ids)))
	return l, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var errs []error
	for _, l := range s.ledgers {
		errs = append(errs, l.close())
	}
	return errors.Join(errs...)
}

func (l *fileLedger) Contains(ctx context.Context, id string) (bool, error) {
	_ = ctx
	id, err := normalizeID(id)
	if err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.ids[id]
	return ok, nil
}

func (l *fileLedger) Record(ctx context.Context, id string) error {
	_ = ctx
	id, err := normalizeID(id)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return ErrClosed
	}
	if _, ok := l.ids[id]; ok {
		return nil
	}

	b, err := json.Marshal(fileRecord{ID: id})
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if _, err := l.f.Write(b); err != nil {
		return err
	}
	// No buffering: the entry must survive a crash right after delivery.
	if err := l.f.Sync(); err != nil {
		return err
	}
	l.ids[id] = struct{}{}
	return nil
}

func (l *fileLedger) close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

type replayResult struct {
	skipped int
	// validLen is the offset just past the last '\n'.
	validLen int64
	// torn is set when the file does not end with '\n'.
	torn bool
}

// replayJournal loads ids from a JSON Lines file and reports how many lines
// could not be decoded.
func replayJournal(path string, out map[string]struct{}) (replayResult, error) {
	var res replayResult
	f, err := os.Open(path)
	if err != nil {
		return res, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 && line[len(line)-1] == '\n' {
			res.validLen += int64(len(line))
		} else if len(line) > 0 {
			// A crash mid-append leaves an unterminated last line.
			res.torn = true
		}
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			var rec fileRecord
			if jerr := json.Unmarshal(trimmed, &rec); jerr != nil || strings.TrimSpace(rec.ID) == "" || res.torn {
				res.skipped++
			} else {
				out[strings.TrimSpace(rec.ID)] = struct{}{}
			}
		}
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, err
		}
	}
}

// legacyPaths lists candidate TinyDB files: next to the journal first,
// then the working directory.
func legacyPaths(dir string, kind Kind) []string {
	name := string(kind) + ".json"
	paths := []string{filepath.Join(dir, name)}
	abs, err1 := filepath.Abs(dir)
	cwd, err2 := os.Getwd()
	if err1 == nil && err2 == nil && filepath.Clean(abs) != filepath.Clean(cwd) {
		paths = append(paths, filepath.Join(cwd, name))
	}
	return paths
}

// importTinyDB reads {"_default": {"1": {"id": "..."}, ...}}.
func importTinyDB(path string, out map[string]struct{}) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var tables map[string]map[string]fileRecord
	if err := json.Unmarshal(b, &tables); err != nil {
		return 0, err
	}
	n := 0
	for _, rows := range tables {
		for _, r := range rows {
			id := strings.TrimSpace(r.ID)
			if id == "" {
				continue
			}
			if _, ok := out[id]; !ok {
				n++
			}
			out[id] = struct{}{}
		}
	}
	return n, nil
}
