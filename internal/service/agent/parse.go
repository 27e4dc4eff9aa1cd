package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/KNICEX/decision-agent/internal/errs"
)

type verdictPayload struct {
	Direction  *string  `json:"direction"`
	Confidence *float64 `json:"confidence"`
	Rationale  *string  `json:"rationale"`
}

type decisionPayload struct {
	Direction    *string  `json:"direction"`
	SizeFraction *float64 `json:"size_fraction"`
	Rationale    *string  `json:"rationale"`
	StopLoss     *float64 `json:"stop_loss"`
	TargetPrice  *float64 `json:"target_price"`
}

// ParsedVerdict 推理步骤返回的信号结论
type ParsedVerdict struct {
	Direction  Direction
	Confidence float64
	Rationale  string
}

type ParsedDecision struct {
	Direction    Direction
	SizeFraction float64
	Rationale    string
	StopLoss     *float64
	TargetPrice  *float64
}

// extractJSON 去掉 ```json 代码块，截取最外层的 JSON 对象
func extractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		lines := strings.Split(s, "\n")
		if len(lines) >= 2 {
			lines = lines[1:]
			if strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
				lines = lines[:len(lines)-1]
			}
		}
		s = strings.Join(lines, "\n")
	}
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", errors.New("no JSON object in response")
	}
	return s[start : end+1], nil
}

func inUnitRange(f float64) bool {
	return !math.IsNaN(f) && f >= 0 && f <= 1
}

func ParseVerdict(raw string) (ParsedVerdict, error) {
	body, err := extractJSON(raw)
	if err != nil {
		return ParsedVerdict{}, errs.Reasoning("parse verdict", err)
	}
	var p verdictPayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return ParsedVerdict{}, errs.Reasoning("parse verdict", err)
	}
	switch {
	case p.Direction == nil:
		return ParsedVerdict{}, errs.Reasoningf("parse verdict", "missing direction")
	case p.Confidence == nil:
		return ParsedVerdict{}, errs.Reasoningf("parse verdict", "missing confidence")
	case p.Rationale == nil || strings.TrimSpace(*p.Rationale) == "":
		return ParsedVerdict{}, errs.Reasoningf("parse verdict", "missing rationale")
	}
	dir, ok := ParseDirection(*p.Direction)
	if !ok {
		return ParsedVerdict{}, errs.Reasoningf("parse verdict", "unknown direction %q", *p.Direction)
	}
	if !inUnitRange(*p.Confidence) {
		return ParsedVerdict{}, errs.Reasoningf("parse verdict", "confidence %v out of [0,1]", *p.Confidence)
	}
	return ParsedVerdict{
		Direction:  dir,
		Confidence: *p.Confidence,
		Rationale:  strings.TrimSpace(*p.Rationale),
	}, nil
}

func ParseDecision(raw string) (ParsedDecision, error) {
	body, err := extractJSON(raw)
	if err != nil {
		return ParsedDecision{}, errs.Reasoning("parse decision", err)
	}
	var p decisionPayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return ParsedDecision{}, errs.Reasoning("parse decision", err)
	}
	switch {
	case p.Direction == nil:
		return ParsedDecision{}, errs.Reasoningf("parse decision", "missing direction")
	case p.SizeFraction == nil:
		return ParsedDecision{}, errs.Reasoningf("parse decision", "missing size_fraction")
	case p.Rationale == nil || strings.TrimSpace(*p.Rationale) == "":
		return ParsedDecision{}, errs.Reasoningf("parse decision", "missing rationale")
	}
	dir, ok := ParseDirection(*p.Direction)
	if !ok {
		return ParsedDecision{}, errs.Reasoningf("parse decision", "unknown direction %q", *p.Direction)
	}
	if !inUnitRange(*p.SizeFraction) {
		return ParsedDecision{}, errs.Reasoningf("parse decision", "size_fraction %v out of [0,1]", *p.SizeFraction)
	}
	for name, v := range map[string]*float64{"stop_loss": p.StopLoss, "target_price": p.TargetPrice} {
		if v != nil && *v <= 0 {
			return ParsedDecision{}, errs.Reasoning("parse decision", fmt.Errorf("%s must be positive, got %v", name, *v))
		}
	}
	return ParsedDecision{
		Direction:    dir,
		SizeFraction: *p.SizeFraction,
		Rationale:    strings.TrimSpace(*p.Rationale),
		StopLoss:     p.StopLoss,
		TargetPrice:  p.TargetPrice,
	}, nil
}
