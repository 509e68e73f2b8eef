package cli

import (
	"strings"

	"github.com/ka2n/cmsrelay/api/retry"
	"github.com/morikuni/failure/v2"
	"github.com/samber/lo"
	"github.com/spf13/pflag"
)

type strategyFlag struct {
	IsSet bool
	Value retry.Strategy
}

// String implements pflag.Value.
func (s *strategyFlag) String() string {
	return s.Value.String()
}

func (s *strategyFlag) Set(value string) error {
	v := retry.Strategy(strings.ToLower(value))
	if !v.Valid() {
		return failure.New(InvalidStrategy,
			failure.Message("Retry strategy must be one of "+strings.Join(lo.Map(retry.Strategies, func(s retry.Strategy, _ int) string {
				return s.String()
			}), ", ")),
			failure.Context{"strategy": value},
		)
	}
	s.Value = v
	s.IsSet = true
	return nil
}

func (s *strategyFlag) Type() string {
	return "strategy"
}

var _ pflag.Value = &strategyFlag{}
