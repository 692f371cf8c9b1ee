package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/sandbox/server/internal/core/geom"
)

// Command is one scripted input: entity asks to move by Move every tick from
// Tick for Hold ticks.
type Command struct {
	Tick   uint64  `yaml:"tick"`
	Entity string  `yaml:"entity"`
	Move   []int32 `yaml:"move"` // [dx, dy]
	Hold   uint64  `yaml:"hold"` // default 1
}

func (c Command) Delta() geom.Vec {
	if len(c.Move) != 2 {
		return geom.Vec{}
	}
	return geom.Vec{DX: c.Move[0], DY: c.Move[1]}
}

// Script is a recorded input sequence. With Loop > 0 the script repeats
// every Loop ticks.
type Script struct {
	Loop     uint64    `yaml:"loop"`
	Commands []Command `yaml:"commands"`
}

// LoadScript reads and parses an input script YAML file.
func LoadScript(path string) (*Script, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script %s: %w", path, err)
	}
	return ParseScript(raw)
}

// ParseScript parses input script YAML.
func ParseScript(raw []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	for i := range s.Commands {
		c := &s.Commands[i]
		if c.Tick == 0 {
			return nil, fmt.Errorf("command %d: ticks start at 1", i)
		}
		if len(c.Move) != 2 {
			return nil, fmt.Errorf("command %d: move wants [dx, dy], got %v", i, c.Move)
		}
		if c.Hold == 0 {
			c.Hold = 1
		}
	}
	sort.SliceStable(s.Commands, func(i, j int) bool {
		return s.Commands[i].Tick < s.Commands[j].Tick
	})
	return &s, nil
}

// At returns the commands active at tick, in script order.
func (s *Script) At(tick uint64) []Command {
	if s == nil || tick == 0 {
		return nil
	}
	if s.Loop > 0 {
		tick = (tick-1)%s.Loop + 1
	}
	var out []Command
	for _, c := range s.Commands {
		if c.Tick > tick {
			break
		}
		if tick < c.Tick+c.Hold {
			out = append(out, c)
		}
	}
	return out
}
