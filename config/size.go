package config

import "github.com/docker/go-units"

// SizeArgument is a byte size written for humans, "64MB" or "1.5GB".
type SizeArgument struct {
	Size int64 `arg:"" help:"size in bytes"`
}

func (s *SizeArgument) UnmarshalText(text []byte) (err error) {
	s.Size, err = units.FromHumanSize(string(text))
	return
}

func (s *SizeArgument) UnmarshalYAML(unmarshal func(any) error) error {
	var text string
	if err := unmarshal(&text); err != nil {
		return err
	}
	return s.UnmarshalText([]byte(text))
}

func (s SizeArgument) String() string {
	return units.HumanSize(float64(s.Size))
}
