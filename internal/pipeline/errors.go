package pipeline

import "fmt"

// ExternalServiceError reports a rejected or unreachable remote call,
// naming the stage, the image index (-1 when not image-scoped), and, for
// the persist stage, the append target that failed.
type ExternalServiceError struct {
	Stage  Stage
	Image  int
	Target string
	Err    error
}

func (e *ExternalServiceError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s stage failed for target %s: %v", e.Stage, e.Target, e.Err)
	}
	if e.Image >= 0 {
		return fmt.Sprintf("%s stage failed for image %d: %v", e.Stage, e.Image, e.Err)
	}
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// ParseError reports model output that is not valid JSON or is missing a
// required field of the analysis contract.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("analysis output does not match the JSON contract: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
