package pipeline

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// archiveFile relocates an ingested file out of the intake directory so it is
// never rediscovered. Rename first; fall back to copy+remove across devices.
func (p *Pipeline) archiveFile(path string) error {
	if err := os.MkdirAll(p.cfg.ProcessedDir, 0o755); err != nil {
		return fmt.Errorf("create processed dir: %w", err)
	}
	dest := filepath.Join(p.cfg.ProcessedDir, filepath.Base(path))

	if err := os.Rename(path, dest); err == nil {
		return nil
	}
	if err := copyFile(path, dest); err != nil {
		return fmt.Errorf("archiving %s: %w", path, err)
	}
	return os.Remove(path)
}

// compressAged gzips archived files older than the retention window into cold
// storage and removes the originals. Runs on every pass.
func (p *Pipeline) compressAged() error {
	entries, err := os.ReadDir(p.cfg.ProcessedDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	cutoff := time.Now().AddDate(0, 0, -p.cfg.RetentionDays)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		src := filepath.Join(p.cfg.ProcessedDir, entry.Name())
		if err := p.compressToCold(src); err != nil {
			p.log.Warn().Err(err).Str("file", entry.Name()).Msg("cold compression failed, keeping original")
			continue
		}
		if err := os.Remove(src); err != nil {
			return fmt.Errorf("removing compressed original %s: %w", src, err)
		}
	}
	return nil
}

func (p *Pipeline) compressToCold(src string) error {
	if err := os.MkdirAll(p.cfg.ColdDir, 0o755); err != nil {
		return fmt.Errorf("create cold dir: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(filepath.Join(p.cfg.ColdDir, filepath.Base(src)+".gz"))
	if err != nil {
		return err
	}
	defer out.Close()

	gzw := gzip.NewWriter(out)
	if _, err := io.Copy(gzw, in); err != nil {
		gzw.Close()
		return err
	}
	return gzw.Close()
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
