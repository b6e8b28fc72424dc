package repository

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"Booster/internal/domain/models"
	domrepo "Booster/internal/domain/repository"
	applogger "Booster/pkg/logger"
)

// FileTableStore keeps each table as {root}/{folder}/{TICKER}_{tf}.csv.
// Replace writes a temp file in the same folder, syncs it and renames it over
// the target, so readers see either the old or the new table.
type FileTableStore struct {
	root    string
	folders map[domrepo.Timeframe]string
	loc     *time.Location
	l       *applogger.Logger
}

var _ domrepo.TableStore = (*FileTableStore)(nil)

// NewFileTableStore creates the timeframe folders under root.
func NewFileTableStore(root string, folders map[string]string, loc *time.Location) (*FileTableStore, error) {
	s := &FileTableStore{
		root:    root,
		folders: make(map[domrepo.Timeframe]string, len(domrepo.AllTimeframes)),
		loc:     loc,
		l:       applogger.Nop(),
	}
	for _, tf := range domrepo.AllTimeframes {
		folder := folders[string(tf)]
		if folder == "" {
			folder = string(tf) + "tf"
		}
		s.folders[tf] = folder
		if err := os.MkdirAll(filepath.Join(root, folder), 0o755); err != nil {
			return nil, fmt.Errorf("%w: create %s: %w", domrepo.ErrStoreIO, folder, err)
		}
	}
	return s, nil
}

// SetLogger injects a structured logger.
func (s *FileTableStore) SetLogger(l *applogger.Logger) { s.l = l }

// Path returns the file backing key.
func (s *FileTableStore) Path(key domrepo.TableKey) string {
	return filepath.Join(s.root, s.folders[key.Timeframe], key.String()+".csv")
}

func (s *FileTableStore) Replace(ctx context.Context, key domrepo.TableKey, rows []models.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := s.Path(key)

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+key.String()+".*.tmp")
	if err != nil {
		return storeErr("create temp", key, err)
	}
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}

	bw := bufio.NewWriterSize(tmp, 64<<10)
	w := csv.NewWriter(bw)
	if err := w.Write(key.Timeframe.Columns()); err != nil {
		cleanup()
		return storeErr("write header", key, err)
	}
	for i := range rows {
		if err := w.Write(encodeRecord(key.Timeframe, &rows[i])); err != nil {
			cleanup()
			return storeErr("write row", key, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		cleanup()
		return storeErr("flush csv", key, err)
	}
	if err := bw.Flush(); err != nil {
		cleanup()
		return storeErr("flush", key, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return storeErr("sync", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return storeErr("close", key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return storeErr("rename", key, err)
	}

	s.l.Debug("table replaced",
		applogger.String("table", key.String()),
		applogger.String("path", target),
		applogger.Int("rows", len(rows)),
	)
	return nil
}

func (s *FileTableStore) Load(ctx context.Context, key domrepo.TableKey) ([]models.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, domrepo.ErrTableNotFound)
		}
		return nil, storeErr("open", key, err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.ReuseRecord = true
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, storeErr("read header", key, err)
	}
	header = append([]string(nil), header...)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var out []models.Row
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, storeErr("read", key, err)
		}
		row, err := decodeRecord(header, rec, s.loc)
		if err != nil {
			return nil, storeErr(fmt.Sprintf("decode line %d", line), key, err)
		}
		if row.Instrument == "" {
			row.Instrument = key.Ticker
		}
		if row.Per == 0 {
			row.Per = key.Timeframe.Per()
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func (s *FileTableStore) List(ctx context.Context, tf domrepo.Timeframe) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.root, s.folders[tf]))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: list %s: %w", domrepo.ErrStoreIO, tf, err)
	}

	suffix := "_" + string(tf) + ".csv"
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, suffix) {
			continue
		}
		out = append(out, strings.TrimSuffix(name, suffix))
	}
	sort.Strings(out)
	return out, nil
}

func (s *FileTableStore) Close() error { return nil }
