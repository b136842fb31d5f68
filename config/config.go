package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/ini.v1"
	"howett.net/plist"
)

// Config holds every tunable of the touch guide service.
type Config struct {
	Touch     Touch
	Server    Server
	Focus     Focus
	DeviceKit DeviceKit

	// Source is the file the values were read from, or "<defaults>".
	Source string
}

// Touch configures the touch exploration engine. The engine only reads it.
type Touch struct {
	// GuideEntryDelay is how long a single finger must rest before touch guide starts.
	GuideEntryDelay time.Duration
	// MoveThreshold is the step between two samples that turns exploration into a gesture.
	MoveThreshold float64
	// DoubleTapTimeout bounds the time between the two taps of a double tap.
	DoubleTapTimeout time.Duration
	// DoubleTapSlop bounds the distance between the two taps of a double tap.
	DoubleTapSlop float64
	// DragThreshold is the translation two fingers need before they count as a drag.
	DragThreshold float64
	// DragMinCosine is how closely the two drag translations must agree in direction.
	DragMinCosine float64
	// MinGestureDistance is the shortest path that is classified as a gesture.
	MinGestureDistance float64
	// BendThreshold is the deviation from the chord that splits a trajectory in two.
	BendThreshold float64
	// MinSegmentDistance is the shortest run that keeps its own direction.
	MinSegmentDistance float64
	// MaxPointers bounds the number of simultaneously tracked pointers.
	MaxPointers int
}

type Server struct {
	Listen string
	CORS   bool
}

type Focus struct {
	CacheSize int
}

type DeviceKit struct {
	Enabled       bool
	Host          string
	Port          int
	ActionTimeout time.Duration
}

const defaultSource = "<defaults>"

// DefaultTouch returns the engine defaults.
func DefaultTouch() Touch {
	return Touch{
		GuideEntryDelay:    150 * time.Millisecond,
		MoveThreshold:      200,
		DoubleTapTimeout:   300 * time.Millisecond,
		DoubleTapSlop:      200,
		DragThreshold:      100,
		DragMinCosine:      0.7,
		MinGestureDistance: 500,
		BendThreshold:      300,
		MinSegmentDistance: 250,
		MaxPointers:        10,
	}
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Touch: DefaultTouch(),
		Server: Server{
			Listen: "localhost:12100",
		},
		Focus: Focus{
			CacheSize: 512,
		},
		DeviceKit: DeviceKit{
			Host:          "localhost",
			Port:          12004,
			ActionTimeout: 5 * time.Second,
		},
		Source: defaultSource,
	}
}

// Load reads path on top of the defaults. An empty path returns the defaults.
// Files ending in .plist are read as property lists, everything else as ini.
func Load(path string) (Config, error) {
	cfg := Default()
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".plist") {
		err = applyPlist(&cfg, data)
	} else {
		err = applyINI(&cfg, data)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.Source = path
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the engine cannot work with.
func (c Config) Validate() error {
	var errs []error
	t := c.Touch
	if t.GuideEntryDelay <= 0 {
		errs = append(errs, errors.New("touch.guide_entry_delay must be positive"))
	}
	if t.DoubleTapTimeout <= 0 {
		errs = append(errs, errors.New("touch.double_tap_timeout must be positive"))
	}
	positives := []struct {
		name  string
		value float64
	}{
		{"touch.move_threshold", t.MoveThreshold},
		{"touch.double_tap_slop", t.DoubleTapSlop},
		{"touch.drag_threshold", t.DragThreshold},
		{"touch.min_gesture_distance", t.MinGestureDistance},
		{"touch.bend_threshold", t.BendThreshold},
		{"touch.min_segment_distance", t.MinSegmentDistance},
	}
	for _, p := range positives {
		if p.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", p.name))
		}
	}
	if t.DragMinCosine < -1 || t.DragMinCosine > 1 {
		errs = append(errs, errors.New("touch.drag_min_cosine must be within [-1, 1]"))
	}
	if t.MaxPointers < 2 {
		errs = append(errs, errors.New("touch.max_pointers must be at least 2"))
	}
	if c.Focus.CacheSize <= 0 {
		errs = append(errs, errors.New("focus.cache_size must be positive"))
	}
	if c.DeviceKit.Enabled && (c.DeviceKit.Port <= 0 || c.DeviceKit.Port > 65535) {
		errs = append(errs, fmt.Errorf("devicekit.port %d out of range", c.DeviceKit.Port))
	}
	return errors.Join(errs...)
}

func applyINI(cfg *Config, data []byte) error {
	file, err := ini.Load(data)
	if err != nil {
		return err
	}

	touch := file.Section("touch")
	var errs []error
	readDuration(touch, "guide_entry_delay", &cfg.Touch.GuideEntryDelay, &errs)
	readFloat(touch, "move_threshold", &cfg.Touch.MoveThreshold, &errs)
	readDuration(touch, "double_tap_timeout", &cfg.Touch.DoubleTapTimeout, &errs)
	readFloat(touch, "double_tap_slop", &cfg.Touch.DoubleTapSlop, &errs)
	readFloat(touch, "drag_threshold", &cfg.Touch.DragThreshold, &errs)
	readFloat(touch, "drag_min_cosine", &cfg.Touch.DragMinCosine, &errs)
	readFloat(touch, "min_gesture_distance", &cfg.Touch.MinGestureDistance, &errs)
	readFloat(touch, "bend_threshold", &cfg.Touch.BendThreshold, &errs)
	readFloat(touch, "min_segment_distance", &cfg.Touch.MinSegmentDistance, &errs)
	readInt(touch, "max_pointers", &cfg.Touch.MaxPointers, &errs)

	server := file.Section("server")
	if server.HasKey("listen") {
		cfg.Server.Listen = server.Key("listen").String()
	}
	readBool(server, "cors", &cfg.Server.CORS, &errs)

	readInt(file.Section("focus"), "cache_size", &cfg.Focus.CacheSize, &errs)

	dk := file.Section("devicekit")
	readBool(dk, "enabled", &cfg.DeviceKit.Enabled, &errs)
	if dk.HasKey("host") {
		cfg.DeviceKit.Host = dk.Key("host").String()
	}
	readInt(dk, "port", &cfg.DeviceKit.Port, &errs)
	readDuration(dk, "action_timeout", &cfg.DeviceKit.ActionTimeout, &errs)

	return errors.Join(errs...)
}

func readDuration(section *ini.Section, key string, dst *time.Duration, errs *[]error) {
	if !section.HasKey(key) {
		return
	}
	v, err := section.Key(key).Duration()
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s.%s: %w", section.Name(), key, err))
		return
	}
	*dst = v
}

func readFloat(section *ini.Section, key string, dst *float64, errs *[]error) {
	if !section.HasKey(key) {
		return
	}
	v, err := section.Key(key).Float64()
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s.%s: %w", section.Name(), key, err))
		return
	}
	*dst = v
}

func readInt(section *ini.Section, key string, dst *int, errs *[]error) {
	if !section.HasKey(key) {
		return
	}
	v, err := section.Key(key).Int()
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s.%s: %w", section.Name(), key, err))
		return
	}
	*dst = v
}

func readBool(section *ini.Section, key string, dst *bool, errs *[]error) {
	if !section.HasKey(key) {
		return
	}
	v, err := section.Key(key).Bool()
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s.%s: %w", section.Name(), key, err))
		return
	}
	*dst = v
}

// plistTouch mirrors Touch with millisecond durations and optional fields.
type plistTouch struct {
	GuideEntryDelayMs  *int64   `plist:"GuideEntryDelayMs"`
	MoveThreshold      *float64 `plist:"MoveThreshold"`
	DoubleTapTimeoutMs *int64   `plist:"DoubleTapTimeoutMs"`
	DoubleTapSlop      *float64 `plist:"DoubleTapSlop"`
	DragThreshold      *float64 `plist:"DragThreshold"`
	DragMinCosine      *float64 `plist:"DragMinCosine"`
	MinGestureDistance *float64 `plist:"MinGestureDistance"`
	BendThreshold      *float64 `plist:"BendThreshold"`
	MinSegmentDistance *float64 `plist:"MinSegmentDistance"`
	MaxPointers        *int     `plist:"MaxPointers"`
}

type plistFile struct {
	Touch  *plistTouch `plist:"Touch"`
	Server *struct {
		Listen *string `plist:"Listen"`
		CORS   *bool   `plist:"CORS"`
	} `plist:"Server"`
	Focus *struct {
		CacheSize *int `plist:"CacheSize"`
	} `plist:"Focus"`
	DeviceKit *struct {
		Enabled         *bool   `plist:"Enabled"`
		Host            *string `plist:"Host"`
		Port            *int    `plist:"Port"`
		ActionTimeoutMs *int64  `plist:"ActionTimeoutMs"`
	} `plist:"DeviceKit"`
}

func applyPlist(cfg *Config, data []byte) error {
	var file plistFile
	if _, err := plist.Unmarshal(data, &file); err != nil {
		return err
	}

	if t := file.Touch; t != nil {
		setMillis(&cfg.Touch.GuideEntryDelay, t.GuideEntryDelayMs)
		setValue(&cfg.Touch.MoveThreshold, t.MoveThreshold)
		setMillis(&cfg.Touch.DoubleTapTimeout, t.DoubleTapTimeoutMs)
		setValue(&cfg.Touch.DoubleTapSlop, t.DoubleTapSlop)
		setValue(&cfg.Touch.DragThreshold, t.DragThreshold)
		setValue(&cfg.Touch.DragMinCosine, t.DragMinCosine)
		setValue(&cfg.Touch.MinGestureDistance, t.MinGestureDistance)
		setValue(&cfg.Touch.BendThreshold, t.BendThreshold)
		setValue(&cfg.Touch.MinSegmentDistance, t.MinSegmentDistance)
		setValue(&cfg.Touch.MaxPointers, t.MaxPointers)
	}
	if s := file.Server; s != nil {
		setValue(&cfg.Server.Listen, s.Listen)
		setValue(&cfg.Server.CORS, s.CORS)
	}
	if f := file.Focus; f != nil {
		setValue(&cfg.Focus.CacheSize, f.CacheSize)
	}
	if d := file.DeviceKit; d != nil {
		setValue(&cfg.DeviceKit.Enabled, d.Enabled)
		setValue(&cfg.DeviceKit.Host, d.Host)
		setValue(&cfg.DeviceKit.Port, d.Port)
		setMillis(&cfg.DeviceKit.ActionTimeout, d.ActionTimeoutMs)
	}
	return nil
}

func setValue[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setMillis(dst *time.Duration, ms *int64) {
	if ms != nil {
		*dst = time.Duration(*ms) * time.Millisecond
	}
}
