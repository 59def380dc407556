package validation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// QualityThresholds defines configurable thresholds for blur validation
type QualityThresholds struct {
	// MaxBlurScore is the aggregated score at or above which an image is blurry
	MaxBlurScore float64

	// MaxAxisSpread is the largest tolerated difference between the
	// sharpest and blurriest defined axis before blur is reported as
	// directional (motion blur, rolling shutter)
	MaxAxisSpread float64

	// MinAxisLength below which the cropped interior is too small to trust
	MinAxisLength int
}

// DefaultQualityThresholds returns the default quality thresholds
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		MaxBlurScore:  0.5,
		MaxAxisSpread: 0.3,
		MinAxisLength: 16,
	}
}

// QualityValidator handles blur quality validation logic
type QualityValidator struct {
	thresholds QualityThresholds
}

// NewQualityValidator creates a new quality validator with default thresholds
func NewQualityValidator() *QualityValidator {
	return &QualityValidator{
		thresholds: DefaultQualityThresholds(),
	}
}

// NewQualityValidatorWithThresholds creates a quality validator with custom thresholds
func NewQualityValidatorWithThresholds(thresholds QualityThresholds) *QualityValidator {
	return &QualityValidator{
		thresholds: thresholds,
	}
}

// Thresholds returns the thresholds in use
func (qv *QualityValidator) Thresholds() QualityThresholds {
	return qv.thresholds
}

// QualityIssue represents a quality validation issue
type QualityIssue struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	Severity    string  `json:"severity"` // "error", "warning", "info"
	ActualValue float64 `json:"actual_value,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`
}

// ImageQualityMetrics represents the metrics needed for blur validation.
// Undefined scores are NaN.
type ImageQualityMetrics struct {
	Shape         []int
	BlurScore     float64
	PerAxis       []float64
	UndefinedAxes []int
}

// IsBlurry reports whether score crosses the blur threshold. NaN is never blurry.
func (qv *QualityValidator) IsBlurry(score float64) bool {
	return !math.IsNaN(score) && score >= qv.thresholds.MaxBlurScore
}

// AxisSpread returns max-min over the defined per-axis scores, or 0 when
// fewer than two axes are defined
func AxisSpread(perAxis []float64) float64 {
	defined := make([]float64, 0, len(perAxis))
	for _, v := range perAxis {
		if !math.IsNaN(v) {
			defined = append(defined, v)
		}
	}
	if len(defined) < 2 {
		return 0
	}
	return floats.Max(defined) - floats.Min(defined)
}

// ValidateBlur checks an estimate for blurriness and reliability issues
func (qv *QualityValidator) ValidateBlur(metrics ImageQualityMetrics) []QualityIssue {
	var issues []QualityIssue

	// 1. Blurriness
	if qv.IsBlurry(metrics.BlurScore) {
		issues = append(issues, QualityIssue{
			Type:        "blurriness",
			Message:     "Image is blurry. Please hold the camera steady and try again.",
			Severity:    "error",
			ActualValue: metrics.BlurScore,
			Threshold:   qv.thresholds.MaxBlurScore,
		})
	}

	// 2. Undefined axes
	if len(metrics.UndefinedAxes) > 0 {
		message := fmt.Sprintf("No edges found along axes %v, blur could not be estimated there.", metrics.UndefinedAxes)
		if len(metrics.UndefinedAxes) == len(metrics.PerAxis) {
			message = "Image has no edges; it may be uniform. Blur could not be estimated."
		}
		issues = append(issues, QualityIssue{
			Type:        "undefined_axes",
			Message:     message,
			Severity:    "warning",
			ActualValue: float64(len(metrics.UndefinedAxes)),
		})
	}

	// 3. Directional blur
	if spread := AxisSpread(metrics.PerAxis); spread >= qv.thresholds.MaxAxisSpread && spread > 0 {
		issues = append(issues, QualityIssue{
			Type:        "anisotropic_blur",
			Message:     "Blur differs strongly between directions. The camera or subject may have moved.",
			Severity:    "warning",
			ActualValue: spread,
			Threshold:   qv.thresholds.MaxAxisSpread,
		})
	}

	// 4. Size
	for axis, n := range metrics.Shape {
		if n < qv.thresholds.MinAxisLength {
			issues = append(issues, QualityIssue{
				Type:        "small_image",
				Message:     fmt.Sprintf("Image is too small along axis %d for a reliable estimate.", axis),
				Severity:    "warning",
				ActualValue: float64(n),
				Threshold:   float64(qv.thresholds.MinAxisLength),
			})
			break
		}
	}

	return issues
}

// ConvertIssuesToMessages converts quality issues to simple error messages for backward compatibility
func (qv *QualityValidator) ConvertIssuesToMessages(issues []QualityIssue) []string {
	var messages []string
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	return messages
}

// HasCriticalIssues checks if there are any critical (error severity) issues
func (qv *QualityValidator) HasCriticalIssues(issues []QualityIssue) bool {
	for _, issue := range issues {
		if issue.Severity == "error" {
			return true
		}
	}
	return false
}

// HasIssue reports whether issues contain one of the given type
func HasIssue(issues []QualityIssue, issueType string) bool {
	for _, issue := range issues {
		if issue.Type == issueType {
			return true
		}
	}
	return false
}
