// Package viz is the terminal frontend. A Bubble Tea program drives a
// [sim.Controller] on a fixed tick, projects particles onto a braille
// [Canvas] and shows counters and a kinetic energy graph beside it.
//
// # Key Bindings
//
//	P, Space - play / pause
//	O        - single step while paused
//	1-9      - load scene by position
//	Arrows   - orbit the camera
//	+/-      - zoom
//	T        - cycle color themes
//	?        - full help
//	Q, Esc   - quit
package viz
