// Command deskbot runs the desk robot: MIDI song playback with a talking
// face, button control and idle head motion, with status published to MQTT
// and a local HTTP page.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sweeney/deskbot/internal/catalog"
	"github.com/sweeney/deskbot/internal/cycle"
	"github.com/sweeney/deskbot/internal/face"
	"github.com/sweeney/deskbot/internal/gpio"
	"github.com/sweeney/deskbot/internal/midiport"
	"github.com/sweeney/deskbot/internal/motion"
	"github.com/sweeney/deskbot/internal/mqtt"
	"github.com/sweeney/deskbot/internal/playback"
	"github.com/sweeney/deskbot/internal/power"
	"github.com/sweeney/deskbot/internal/sequencer"
	"github.com/sweeney/deskbot/internal/servo"
	"github.com/sweeney/deskbot/internal/status"
	"github.com/sweeney/deskbot/internal/storage"
	"github.com/sweeney/deskbot/internal/web"
)

// imageName is where the running program is copied on a long C press.
const imageName = "/stackchan_tester.bin"

type config struct {
	chip                       string
	pins                       [gpio.NumButtons]int
	pinLED, pinExt             int
	tick                       time.Duration
	maxCatchUp                 int
	idle                       time.Duration
	storageDir                 string
	cardSettle                 time.Duration
	songs                      int
	chOffset                   int
	midiDevice                 string
	midiBaud                   int
	i2cBus                     int
	i2cAddr                    uint
	servoX, servoY             int
	batteryPath                string
	broker, clientID, httpAddr string
	heartbeat                  time.Duration
}

func main() {
	var cfg config
	flag.StringVar(&cfg.chip, "chip", "gpiochip0", "GPIO chip name")
	flag.IntVar(&cfg.pins[gpio.ButtonA], "pin-a", gpio.DefaultPinA, "BCM pin number for button A")
	flag.IntVar(&cfg.pins[gpio.ButtonB], "pin-b", gpio.DefaultPinB, "BCM pin number for button B")
	flag.IntVar(&cfg.pins[gpio.ButtonC], "pin-c", gpio.DefaultPinC, "BCM pin number for button C")
	flag.IntVar(&cfg.pinLED, "pin-led", gpio.DefaultPinLED, "BCM pin number for the status LED (-1 to disable)")
	flag.IntVar(&cfg.pinExt, "pin-ext", gpio.DefaultPinExt, "BCM pin number for the aux power rail (-1 to disable)")
	flag.DurationVar(&cfg.tick, "tick", cycle.DefaultTick, "Music tick period")
	flag.IntVar(&cfg.maxCatchUp, "max-catch-up", cycle.DefaultMaxCatchUp, "Most music ticks processed in one pass (negative for unbounded)")
	flag.DurationVar(&cfg.idle, "idle", cycle.DefaultIdle, "Sleep between main cycle passes (negative to only yield)")
	flag.StringVar(&cfg.storageDir, "storage", "/media/sd", "Song card mount directory")
	flag.DurationVar(&cfg.cardSettle, "card-settle", 2*time.Second, "Wait after the card is found before reading it")
	flag.IntVar(&cfg.songs, "songs", catalog.DefaultSize, "Number of catalog slots")
	flag.IntVar(&cfg.chOffset, "ch-offset", 0, "MIDI channel offset applied to every song")
	flag.StringVar(&cfg.midiDevice, "midi", "/dev/ttyAMA0", "MIDI UART device (empty to discard MIDI)")
	flag.IntVar(&cfg.midiBaud, "midi-baud", midiport.DefaultBaud, "MIDI UART baud rate")
	flag.IntVar(&cfg.i2cBus, "i2c-bus", 1, "I2C bus number of the servo board (-1 to disable servos)")
	flag.UintVar(&cfg.i2cAddr, "i2c-addr", 0x40, "I2C address of the servo board")
	flag.IntVar(&cfg.servoX, "servo-x", 0, "Servo board channel for the pan axis")
	flag.IntVar(&cfg.servoY, "servo-y", 1, "Servo board channel for the tilt axis")
	flag.StringVar(&cfg.batteryPath, "battery", power.DefaultSupplyPath, "power_supply directory of the battery (empty for none)")
	flag.StringVar(&cfg.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address (empty to disable)")
	flag.StringVar(&cfg.clientID, "client-id", "deskbot", "MQTT client ID")
	flag.StringVar(&cfg.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.DurationVar(&cfg.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")

	flag.Parse()

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config) error {
	// Buttons are the only hard requirement.
	buttons, err := gpio.NewRealReader(cfg.chip, cfg.pins)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer buttons.Close()

	led := openOutput(cfg.chip, cfg.pinLED, "led")
	if led != nil {
		defer led.Close()
	}
	var rail *power.Rail
	if ext := openOutput(cfg.chip, cfg.pinExt, "aux rail"); ext != nil {
		defer ext.Close()
		rail = power.NewRail(ext)
	}

	gauge := openGauge(cfg.batteryPath)
	_, noBattery := gauge.(power.None)
	surface := face.New(!noBattery)

	// Telemetry
	var publisher mqtt.Publisher = mqtt.Nop{}
	var mqttStatus mqtt.ConnectionStatus
	if cfg.broker != "" {
		rp := mqtt.NewRealPublisher(cfg.broker, cfg.clientID, mqtt.DefaultBufferSize)
		publisher, mqttStatus = rp, rp
	} else {
		log.Printf("mqtt: disabled")
	}
	defer publisher.Close()
	queue := mqtt.NewQueue(publisher, mqtt.DefaultQueueSize)

	port := openMIDI(cfg.midiDevice, cfg.midiBaud)
	defer port.Close()

	store, player := openPlayer(cfg, port, surface, queue)
	if player != nil {
		defer player.Close()
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		TickUs:      cfg.tick.Microseconds(),
		MaxCatchUp:  cfg.maxCatchUp,
		HeartbeatMs: cfg.heartbeat.Milliseconds(),
		Broker:      cfg.broker,
		HTTPAddr:    cfg.httpAddr,
		StorageDir:  cfg.storageDir,
		MIDIDevice:  cfg.midiDevice,
		Songs:       cfg.songs,
	})

	x, y, closeServos := openServos(cfg)
	defer closeServos()
	task := motion.New(motion.Config{
		X:     x,
		Y:     y,
		Face:  surface,
		Gauge: gauge,
		Stop:  gpio.LevelFunc(buttons, gpio.ButtonC),
	})

	deps := cycle.Deps{
		Buttons: buttons,
		Rail:    rail,
		Face:    surface,
		Motion:  task,
		Tracker: tracker,
	}
	if player != nil {
		deps.Player = player
	}
	if led != nil {
		deps.LED = led
	}
	if store != nil {
		deps.SaveImage = func() { saveImage(store) }
	}
	loop := cycle.New(deps, cycle.Config{
		Tick:       cfg.tick,
		MaxCatchUp: cfg.maxCatchUp,
		IdleSleep:  cfg.idle,
	})
	loop.Refresh()

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	queue.System(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	})

	var wg sync.WaitGroup
	bg, stopBackground := context.WithCancel(context.Background())
	defer func() {
		stopBackground()
		wg.Wait()
	}()

	// Start HTTP status server
	if cfg.httpAddr != "" {
		srv := web.New(cfg.httpAddr, tracker)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(bg, nil); err != nil {
				log.Printf("http server error: %v", err)
			}
		}()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		queue.Run(bg)
	}()
	go func() {
		defer wg.Done()
		if err := task.Run(bg); err != nil && err != context.Canceled {
			log.Printf("motion: %v", err)
		}
	}()

	log.Printf("started: tick=%v max-catch-up=%d storage=%s midi=%s broker=%s heartbeat=%v",
		cfg.tick, cfg.maxCatchUp, cfg.storageDir, cfg.midiDevice, cfg.broker, cfg.heartbeat)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var heartbeat <-chan time.Time
	if cfg.heartbeat > 0 {
		hb := time.NewTicker(cfg.heartbeat)
		defer hb.Stop()
		heartbeat = hb.C
	}
	refresh := time.NewTicker(time.Second)
	defer refresh.Stop()

	ctx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go func() {
		runLoop(ctx, queue.System, mqttStatus, tracker, time.Now, heartbeat, refresh.C, sigCh)
		stopLoop()
	}()

	loop.Run(ctx)
	return nil
}

// runLoop is the supervisor: it keeps the MQTT status fresh, publishes
// heartbeats and, on a signal, the shutdown event. It returns the signal
// name, or "" when ctx ends first.
func runLoop(ctx context.Context, publish func(mqtt.SystemEvent), mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, now func() time.Time, heartbeat, refresh <-chan time.Time, sig <-chan os.Signal) string {
	syncMQTT := func() {
		if tracker != nil && mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ""

		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				syncMQTT()
				event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			publish(event)
			return signalName

		case <-heartbeat:
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "HEARTBEAT",
			}
			if tracker != nil {
				syncMQTT()
				snap := tracker.Snapshot()
				log.Printf("heartbeat: uptime=%v track=%q status=%s ticks=%d overloads=%d",
					snap.Uptime().Truncate(time.Second), snap.Playback.Track, snap.Playback.Status,
					snap.Counters.Ticks, snap.Counters.Overloads)
				event.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
			}
			publish(event)

		case <-refresh:
			syncMQTT()
		}
	}
}

// openPlayer brings up the song card and the playback controller. A
// missing card yields no player; the rest of the robot keeps running.
func openPlayer(cfg config, port midiport.Port, surface *face.Surface, queue *mqtt.Queue) (*storage.DirStore, *playback.Controller) {
	store, err := storage.NewDirStore(cfg.storageDir)
	if err != nil {
		log.Printf("storage: %v", err)
		return nil, nil
	}
	log.Printf("storage: card initialized at %s", store.Root())
	if cfg.cardSettle > 0 {
		time.Sleep(cfg.cardSettle)
	}

	player := playback.New(
		sequencer.NewFactory(store, port, surface.OnNote),
		catalog.New(store, cfg.songs),
		cfg.tick,
		playback.Options{
			ChannelOffset: cfg.chOffset,
			Notify:        queue.Notify,
			Silence:       surface.CloseMouth,
		},
	)
	if err := player.Boot(); err != nil {
		log.Printf("playback: %v", err)
	}
	return store, player
}

// openMIDI opens the UART, falling back to a port that discards
// everything so playback timing and the mouth still run.
func openMIDI(device string, baud int) midiport.Port {
	if device == "" {
		return midiport.Discard{}
	}
	serial := midiport.NewSerial(device, baud)
	if err := serial.Open(); err != nil {
		log.Printf("midi: %v, discarding MIDI output", err)
		return midiport.Discard{}
	}
	return serial
}

// openOutput requests an output line, or returns nil when pin is negative
// or the line is unavailable.
func openOutput(chip string, pin int, name string) gpio.Output {
	if pin < 0 {
		return nil
	}
	out, err := gpio.NewRealOutput(chip, pin)
	if err != nil {
		log.Printf("gpio: %s: %v", name, err)
		return nil
	}
	return out
}

func openGauge(path string) power.Gauge {
	if path == "" {
		return power.None{}
	}
	g, err := power.NewSysfs(path)
	if err != nil {
		log.Printf("power: %v, battery icon hidden", err)
		return power.None{}
	}
	return g
}

// openServos returns the pan and tilt axes clamped to the servo range, or
// no-op axes when the board is disabled or missing.
func openServos(cfg config) (x, y servo.Axis, closeFn func()) {
	if cfg.i2cBus < 0 {
		return servo.Nop{}, servo.Nop{}, func() {}
	}
	board, err := servo.OpenPCA9685(cfg.i2cBus, uint16(cfg.i2cAddr))
	if err != nil {
		log.Printf("servo: %v, motion disabled", err)
		return servo.Nop{}, servo.Nop{}, func() {}
	}
	full := servo.Range{Min: 0, Max: 180}
	closeFn = func() {
		if err := board.Close(); err != nil {
			log.Printf("servo: close: %v", err)
		}
	}
	return servo.Limited(board.Axis(cfg.servoX), full), servo.Limited(board.Axis(cfg.servoY), full), closeFn
}

// saveImage copies the running executable onto the card.
func saveImage(store *storage.DirStore) {
	exe, err := os.Executable()
	if err != nil {
		log.Printf("image: %v", err)
		return
	}
	if err := store.SaveImage(exe, imageName); err != nil {
		log.Printf("image: copy failed: %v", err)
		return
	}
	log.Printf("image: copied %s to %s", exe, imageName)
}
