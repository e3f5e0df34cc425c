// Package activity turns user-interaction signals into an idle timer.
//
// A [Source] delivers [Signal] values to subscribers. [Hub] is an in-process
// Source that HTTP middleware or UI adapters emit into. [Tracker] records the
// time of the last signal and calls its idle callback once no signal has
// arrived for the configured timeout.
package activity
