// Package config implements the flat key/value settings store shared by the
// scanner components. Settings live in a single JSON file; missing files are
// created from defaults, missing keys fall back to documented defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/searchlight-sar/scanner/internal/logger"
)

// Default values applied when a key is absent from the settings file.
const (
	DefaultSaveRate      = 2.0 // seconds between save cycles
	DefaultImagesPerRate = 1
	DefaultImagesPerDir  = 100
	DefaultFontSize      = 16
	DefaultGPSName       = "/dev/ttyACM0"
	DefaultGPSBaudRate   = 115200
	DefaultLEDName       = "/dev/ttyUSB0"
	DefaultLEDBaudRate   = 9600
	DefaultLEDDuration   = 2.0 // seconds
)

// Save interval bounds, applied on read
const (
	MinSaveRate = 0.1
	MaxSaveRate = 86400.0
)

// MaxRankedCategories bounds how many categories may carry an explicit rank.
const MaxRankedCategories = 6

const defaultJSON = `{
    "gps_name": "/dev/ttyACM0",
    "gps_baud_rate": 115200,
    "led_name": "/dev/ttyUSB0",
    "led_baud_rate": 9600,
    "led_light_duration": 2,
    "image_save_dir": "",
    "image_save_rate": 2,
    "images_per_rate": 1,
    "images_per_dir": 100,
    "image_font_size": 16,
    "image_font_color": [255, 0, 0],
    "category_thresholds": {
        "vehicle": 0.5,
        "person": 0.4,
        "powerline": 0.7,
        "ocean debris": 0.6,
        "ship wake": 0.6,
        "airplane": 0.5,
        "helicopter": 0.5
    },
    "selected_targets": {}
}`

// RankListener receives the new rank map whenever category ranks change.
// The map passed in is a private copy; holders may keep it without locking.
type RankListener func(ranks map[string]int)

// Store is a thread-safe view over the settings file. One writer (the
// UI/config surface) and many readers (scheduler, GPS, alerts) share it;
// reads return copies so callers never observe mid-update state.
type Store struct {
	mu        sync.Mutex
	path      string
	values    map[string]interface{}
	listeners []RankListener
}

// Load opens the settings file at path, creating it from defaults when it
// does not exist. A present but malformed file is an error, not a reset.
func Load(path string) (*Store, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info("Config", "Settings file %s missing, writing defaults", path)
		if err := os.WriteFile(path, []byte(defaultJSON), 0644); err != nil {
			return nil, fmt.Errorf("create settings file: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}

	values := make(map[string]interface{})
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("settings file %s is not valid JSON: %w", path, err)
	}

	return &Store{path: path, values: values}, nil
}

// Set stores a value and persists the whole file.
func (s *Store) Set(key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.values, "", "    ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	return nil
}

// Float returns a numeric setting, or def when absent or non-numeric.
// JSON numbers decode as float64; values stored via Set may also be Go ints.
func (s *Store) Float(key string, def float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch v := s.values[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// Int returns an integer setting, or def when absent or non-numeric.
func (s *Store) Int(key string, def int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch v := s.values[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// String returns a string setting, or def when absent.
func (s *Store) String(key string, def string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[key].(string); ok {
		return v
	}
	return def
}

// SaveRate returns image_save_rate in seconds, clamped to [0.1, 86400].
func (s *Store) SaveRate() float64 {
	rate := s.Float("image_save_rate", DefaultSaveRate)
	if rate < MinSaveRate {
		return MinSaveRate
	}
	if rate > MaxSaveRate {
		return MaxSaveRate
	}
	return rate
}

// ImagesPerRate returns how many frames may be persisted per save cycle.
func (s *Store) ImagesPerRate() int {
	n := s.Int("images_per_rate", DefaultImagesPerRate)
	if n < 0 {
		return 0
	}
	return n
}

// ImagesPerDir returns the per-shard file cap.
func (s *Store) ImagesPerDir() int {
	n := s.Int("images_per_dir", DefaultImagesPerDir)
	if n < 0 {
		return 0
	}
	return n
}

// SaveDir returns image_save_dir. There is no sane default; an empty result
// is fatal at startup and the caller must treat it so.
func (s *Store) SaveDir() string {
	return s.String("image_save_dir", "")
}

// FontColor returns image_font_color as an RGB triple.
func (s *Store) FontColor() [3]uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	rgb := [3]uint8{255, 0, 0}
	arr, ok := s.values["image_font_color"].([]interface{})
	if !ok || len(arr) != 3 {
		return rgb
	}
	for i := 0; i < 3; i++ {
		if v, ok := arr[i].(float64); ok && v >= 0 && v <= 255 {
			rgb[i] = uint8(v)
		}
	}
	return rgb
}

// CategoryThresholds returns the per-category confidence floor map.
func (s *Store) CategoryThresholds() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64)
	raw, ok := s.values["category_thresholds"].(map[string]interface{})
	if !ok {
		return out
	}
	for k, v := range raw {
		if f, ok := v.(float64); ok {
			out[k] = f
		}
	}
	return out
}

// Ranks returns the current category→rank map (selected_targets). The result
// is a copy; ranks outside 1..6 are dropped.
func (s *Store) Ranks() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ranksLocked()
}

func (s *Store) ranksLocked() map[string]int {
	out := make(map[string]int)
	raw, ok := s.values["selected_targets"].(map[string]interface{})
	if !ok {
		return out
	}
	for k, v := range raw {
		f, ok := v.(float64)
		if !ok {
			continue
		}
		rank := int(f)
		if rank < 1 || rank > MaxRankedCategories {
			continue
		}
		out[k] = rank
	}
	return out
}

// SetRanks replaces the category rank map, persists it, and notifies
// listeners with a fresh copy. At most MaxRankedCategories entries are
// accepted.
func (s *Store) SetRanks(ranks map[string]int) error {
	if len(ranks) > MaxRankedCategories {
		return fmt.Errorf("at most %d categories may be ranked, got %d", MaxRankedCategories, len(ranks))
	}
	seen := make(map[int]string)
	for cat, rank := range ranks {
		if rank < 1 || rank > MaxRankedCategories {
			return fmt.Errorf("rank for %q out of range: %d", cat, rank)
		}
		if other, dup := seen[rank]; dup {
			return fmt.Errorf("rank %d assigned to both %q and %q", rank, other, cat)
		}
		seen[rank] = cat
	}

	s.mu.Lock()
	raw := make(map[string]interface{}, len(ranks))
	for k, v := range ranks {
		raw[k] = float64(v)
	}
	s.values["selected_targets"] = raw
	err := s.persistLocked()
	listeners := make([]RankListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	for _, fn := range listeners {
		snapshot := make(map[string]int, len(ranks))
		for k, v := range ranks {
			snapshot[k] = v
		}
		fn(snapshot)
	}
	return nil
}

// OnRanksChange registers a listener called after every successful SetRanks.
func (s *Store) OnRanksChange(fn RankListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
