package servo

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/pca9685"
	"periph.io/x/host/v3/sysfs"
)

// PWM counts for the 0° and 180° ends of a hobby servo at 50 Hz.
const (
	minPulse = 150
	maxPulse = 600
)

// Board is a PCA9685 servo controller on an I2C bus.
type Board struct {
	bus   i2c.BusCloser
	group *pca9685.ServoGroup
}

// OpenPCA9685 opens /dev/i2c-<busNum>, resets the controller and sets the
// servo frame rate.
func OpenPCA9685(busNum int, addr uint16) (*Board, error) {
	bus, err := sysfs.NewI2C(busNum)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %d: %w", busNum, err)
	}

	// General call software reset.
	if err := bus.Tx(0x00, []byte{0x06}, nil); err != nil {
		log.Printf("servo: reset pca9685: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	dev, err := pca9685.NewI2C(bus, addr)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("init pca9685: %w", err)
	}
	if err := dev.SetPwmFreq(50 * physic.Hertz); err != nil {
		bus.Close()
		return nil, fmt.Errorf("set pwm frequency: %w", err)
	}
	if err := dev.SetAllPwm(0, 0); err != nil {
		bus.Close()
		return nil, fmt.Errorf("clear pwm: %w", err)
	}

	return &Board{
		bus:   bus,
		group: pca9685.NewServoGroup(dev, minPulse, maxPulse, 0, 180*physic.Degree),
	}, nil
}

// Axis returns the servo on channel.
func (b *Board) Axis(channel int) Axis {
	return boardAxis{servo: b.group.GetServo(channel), channel: channel}
}

// Close releases the bus. Servos keep their last pulse.
func (b *Board) Close() error {
	return b.bus.Close()
}

type boardAxis struct {
	servo   *pca9685.Servo
	channel int
}

func (a boardAxis) SetDegrees(deg float64) error {
	if err := a.servo.SetAngle(physic.Angle(deg * float64(physic.Degree))); err != nil {
		return fmt.Errorf("set servo %d: %w", a.channel, err)
	}
	return nil
}
