// Package system holds process-level helpers: file limits, latest-file
// discovery and run statistics.
package system

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ivlev/storyboard/internal/logger"
)

func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logger.Warn("Не удалось получить лимит файлов", logger.Err(err))
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logger.Warn("Не удалось установить лимит файлов", logger.Err(err))
	} else {
		logger.Debug("Open file limit raised", logger.Any("limit", rLimit.Cur))
	}
}

// findLatest returns the newest regular file in dir accepted by match.
func findLatest(dir string, match func(name string) bool) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !match(f.Name()) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}
	return latestFile, nil
}

// FindLatestProject returns the most recently modified .json project in dir.
func FindLatestProject(dir string) (string, error) {
	latest, err := findLatest(dir, func(name string) bool {
		return strings.HasSuffix(strings.ToLower(name), ".json")
	})
	if err != nil {
		return "", err
	}
	if latest == "" {
		return "", fmt.Errorf("в папке %s не найдено проектов", dir)
	}
	return latest, nil
}

// FindLatestImage returns the newest image next to path, or inside it when
// path is a directory.
func FindLatestImage(path string, isImage func(name string) bool) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}

	searchDir := path
	if !fi.IsDir() {
		searchDir = filepath.Dir(path)
	}

	latest, err := findLatest(searchDir, isImage)
	if err != nil {
		return "", err
	}
	if latest == "" {
		return "", fmt.Errorf("в папке %s не найдено изображений", searchDir)
	}
	return latest, nil
}
