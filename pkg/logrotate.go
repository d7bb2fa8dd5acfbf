package pkg

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const backupTimeFormat = "20060102-150405.000"

type LogRotateConfig struct {
	// MaxSize in bytes. Zero disables size-triggered rotation.
	MaxSize int64
	// MaxBackups kept after rotation. Zero keeps all.
	MaxBackups int
	// MaxAge in days. Zero keeps backups forever.
	MaxAge   int
	Compress bool
}

func DefaultLogRotateConfig() *LogRotateConfig {
	return &LogRotateConfig{
		MaxSize:    10 * 1024 * 1024,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}
}

type LogRotator struct {
	config *LogRotateConfig
	now    func() time.Time
}

func NewLogRotator(config *LogRotateConfig) *LogRotator {
	if config == nil {
		config = DefaultLogRotateConfig()
	}
	return &LogRotator{config: config, now: time.Now}
}

// CheckAndRotate rotates logFile when it has grown past MaxSize.
func (lr *LogRotator) CheckAndRotate(logFile string) error {
	info, err := os.Stat(logFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	if lr.config.MaxSize <= 0 || info.Size() < lr.config.MaxSize {
		return nil
	}
	return lr.rotate(logFile)
}

// ForceRotate rotates logFile regardless of its size.
func (lr *LogRotator) ForceRotate(logFile string) error {
	if _, err := os.Stat(logFile); err != nil {
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	return lr.rotate(logFile)
}

// GetBackupFiles lists the backups of logFile, newest first.
func (lr *LogRotator) GetBackupFiles(logFile string) ([]string, error) {
	dir := filepath.Dir(logFile)
	name, ext := splitExt(filepath.Base(logFile))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read log directory: %w", err)
	}

	prefix := name + "."
	var backups []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fn := entry.Name()
		if !strings.HasPrefix(fn, prefix) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimSuffix(fn, ".gz"), ext)
		stamp = strings.TrimPrefix(stamp, prefix)
		if _, err := time.Parse(backupTimeFormat, stamp); err != nil {
			continue
		}
		backups = append(backups, filepath.Join(dir, fn))
	}

	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}

func (lr *LogRotator) rotate(logFile string) error {
	name, ext := splitExt(filepath.Base(logFile))
	backup := filepath.Join(filepath.Dir(logFile), fmt.Sprintf("%s.%s%s", name, lr.now().Format(backupTimeFormat), ext))

	if err := os.Rename(logFile, backup); err != nil {
		return fmt.Errorf("failed to rename log file: %w", err)
	}

	if lr.config.Compress {
		if err := compressFile(backup); err != nil {
			return err
		}
	}

	return lr.cleanup(logFile)
}

func (lr *LogRotator) cleanup(logFile string) error {
	backups, err := lr.GetBackupFiles(logFile)
	if err != nil {
		return err
	}

	cutoff := lr.now().AddDate(0, 0, -lr.config.MaxAge)
	for i, backup := range backups {
		expired := false
		if lr.config.MaxBackups > 0 && i >= lr.config.MaxBackups {
			expired = true
		}
		if lr.config.MaxAge > 0 {
			if info, err := os.Stat(backup); err == nil && info.ModTime().Before(cutoff) {
				expired = true
			}
		}
		if expired {
			if err := os.Remove(backup); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove old backup %s: %w", backup, err)
			}
		}
	}
	return nil
}

func compressFile(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open backup for compression: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(path+".gz", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create compressed backup: %w", err)
	}

	gz := gzip.NewWriter(dst)
	if _, err := io.Copy(gz, src); err != nil {
		gz.Close()
		dst.Close()
		return fmt.Errorf("failed to compress backup: %w", err)
	}
	if err := gz.Close(); err != nil {
		dst.Close()
		return fmt.Errorf("failed to finish compressed backup: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to close compressed backup: %w", err)
	}

	src.Close()
	return os.Remove(path)
}

func splitExt(base string) (string, string) {
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext), ext
}

// ParseSizeString parses sizes such as "512", "100KB", "5 MB" or "1GB".
func ParseSizeString(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	multiplier := int64(1)
	for _, unit := range []struct {
		suffix string
		factor int64
	}{
		{"GB", 1024 * 1024 * 1024},
		{"MB", 1024 * 1024},
		{"KB", 1024},
		{"G", 1024 * 1024 * 1024},
		{"M", 1024 * 1024},
		{"K", 1024},
		{"B", 1},
	} {
		if strings.HasSuffix(s, unit.suffix) {
			multiplier = unit.factor
			s = strings.TrimSpace(strings.TrimSuffix(s, unit.suffix))
			break
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid size %q: negative", s)
	}
	return n * multiplier, nil
}
