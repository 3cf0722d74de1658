package database

import (
	"testing"

	"futures-trading-engine/internal/errs"
)

func TestDefaultSettingsValidate(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Fatalf("default settings must validate, got %v", err)
	}
}

func TestValidateNumericBounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"maxRiskPerTrade too high", func(s *Settings) { s.MaxRiskPerTrade = 11 }},
		{"maxRiskPerTrade too low", func(s *Settings) { s.MaxRiskPerTrade = 0.4 }},
		{"riskRewardRatio too high", func(s *Settings) { s.RiskRewardRatio = 6 }},
		{"rsiPeriod too low", func(s *Settings) { s.RSIPeriod = 5 }},
		{"rsiOverbought too low", func(s *Settings) { s.RSIOverbought = 55 }},
		{"trailingStopPercent zero", func(s *Settings) { s.TrailingStopPercent = 0 }},
		{"aiRequiredSignals too high", func(s *Settings) { s.AIRequiredSignals = 6 }},
		{"maxConcurrentTrades zero", func(s *Settings) { s.MaxConcurrentTrades = 0 }},
		{"pauseAfterConsecutiveLosses too low", func(s *Settings) { s.PauseAfterConsecutiveLosses = 1 }},
		{"maxPositionPercent too high", func(s *Settings) { s.MaxPositionPercent = 60 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(s)
			err := s.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errs.Is(err, errs.ValidationFailed) {
				t.Errorf("expected validation_failed kind, got %v", err)
			}
		})
	}
}

func TestValidatePeriodOrdering(t *testing.T) {
	s := DefaultSettings()
	s.MAShortPeriod = 60
	s.MALongPeriod = 60
	if err := s.Validate(); err == nil {
		t.Error("maLongPeriod == maShortPeriod must fail")
	}

	s = DefaultSettings()
	s.MACDFast = 20
	s.MACDSlow = 20
	if err := s.Validate(); err == nil {
		t.Error("macdSlow == macdFast must fail")
	}
}

func TestValidateEnumerations(t *testing.T) {
	s := DefaultSettings()
	s.EnabledStrategies = []string{"breakout", "martingale"}
	if err := s.Validate(); err == nil {
		t.Error("unknown strategy must fail validation")
	}

	s = DefaultSettings()
	s.Timeframes = []string{"1h", "2h"}
	if err := s.Validate(); err == nil {
		t.Error("unknown timeframe must fail validation")
	}
}

func TestTradeIsLong(t *testing.T) {
	long := &Trade{Direction: DirectionLong}
	short := &Trade{Direction: DirectionShort}
	if !long.IsLong() || short.IsLong() {
		t.Error("IsLong must reflect direction")
	}
}
