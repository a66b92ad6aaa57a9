// Package daemon drives the capture pipeline end to end. The controller
// calibrates the noise floor, runs capture, classification and segmentation
// on the producer side, and transcription plus transcript delivery on the
// consumer side. Shutdown flushes the open segment and drains everything
// pending before returning.
package daemon
