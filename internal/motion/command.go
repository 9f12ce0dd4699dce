package motion

// Command is a request from the main cycle to the motion task.
type Command interface {
	command()
}

// Home moves the head to the neutral pose.
type Home struct{}

// Calibrate enters (On) or leaves offset calibration. Entering zeroes the
// offsets and holds the neutral pose.
type Calibrate struct {
	On bool
}

// Offset sets the per-axis trim in degrees. While calibrating the neutral
// pose is re-applied with the new trim.
type Offset struct {
	X, Y int
}

func (Home) command()      {}
func (Calibrate) command() {}
func (Offset) command()    {}
