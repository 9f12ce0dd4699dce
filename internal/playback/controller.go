// Package playback owns the sequencer engine and its lifecycle: boot, play,
// stop, track switch and end-of-song auto-chain.
//
// A Controller is driven only from the main cycle and is not safe for
// concurrent use.
package playback

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/deskbot/internal/catalog"
	"github.com/sweeney/deskbot/internal/sequencer"
)

// ErrNoSongs is returned when no catalog slot holds a playable file.
var ErrNoSongs = errors.New("no playable song in catalog")

// Options configures a Controller. Zero values are usable.
type Options struct {
	// ChannelOffset shifts every channel message of a loaded song.
	ChannelOffset int

	// Now stamps events. Defaults to time.Now.
	Now func() time.Time

	// Notify receives every lifecycle event. It is called on the main
	// cycle and must not block.
	Notify func(Event)

	// Silence is called whenever notes are silenced, to close the mouth.
	Silence func()
}

// Controller is the playback state machine. Exactly one engine handle is
// live at a time; a nil handle means playback is unavailable.
type Controller struct {
	newEngine sequencer.Factory
	songs     *catalog.Catalog
	tick      time.Duration
	opts      Options

	engine sequencer.Engine
	track  string
}

// New creates a Controller. Nothing is loaded until Boot.
func New(factory sequencer.Factory, songs *catalog.Catalog, tick time.Duration, opts Options) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		newEngine: factory,
		songs:     songs,
		tick:      tick,
		opts:      opts,
	}
}

// Boot loads the first available song and leaves it STOPPED.
func (c *Controller) Boot() error {
	if err := c.build(); err != nil {
		c.unavailable(err)
		return err
	}
	return nil
}

// TickAdvance processes one tick when playing. It reports true when the
// tick ended the song, in which case the next song has been chained and
// started.
func (c *Controller) TickAdvance() bool {
	if c.engine == nil || c.engine.Status() != sequencer.Playing {
		return false
	}
	if c.engine.TickProc() != sequencer.Stopped {
		return false
	}
	c.endOfSong()
	return true
}

func (c *Controller) endOfSong() {
	c.emit(EventEndOfSong, c.track, "")
	c.silence()
	c.engine.ResetTrackTables()
	c.release()

	if err := c.build(); err != nil {
		c.unavailable(err)
		return
	}
	c.start()
}

// TogglePlayStop starts a stopped song or stops a playing one. Stopping
// keeps the handle so resuming continues from the same position. When
// playback is unavailable, construction is retried and a successful
// rebuild starts playing.
func (c *Controller) TogglePlayStop() {
	if c.engine == nil {
		if err := c.build(); err != nil {
			c.unavailable(err)
			return
		}
		c.start()
		return
	}

	if c.engine.Status() == sequencer.Playing {
		c.engine.Stop()
		c.silence()
		c.emit(EventStop, c.track, "")
		return
	}
	c.start()
}

// SwitchTrack replaces the current song with the next catalog entry,
// keeping the play state: a playing song is followed by a playing song and
// a stopped one by a stopped one.
func (c *Controller) SwitchTrack() {
	wasPlaying := c.Playing()

	if c.engine != nil {
		c.emit(EventSkip, c.track, "")
		if wasPlaying {
			c.engine.Stop()
		}
		c.silence()
		c.engine.ResetTrackTables()
		c.release()
	}

	if err := c.build(); err != nil {
		c.unavailable(err)
		return
	}
	if wasPlaying {
		c.start()
	}
}

// Status returns the transport state; STOPPED when unavailable.
func (c *Controller) Status() sequencer.Status {
	if c.engine == nil {
		return sequencer.Stopped
	}
	return c.engine.Status()
}

// Playing reports whether a song is playing.
func (c *Controller) Playing() bool {
	return c.Status() == sequencer.Playing
}

// Available reports whether an engine handle is live.
func (c *Controller) Available() bool {
	return c.engine != nil
}

// Track returns the loaded file name, or "" when unavailable.
func (c *Controller) Track() string {
	return c.track
}

// Close releases the engine, silencing it first.
func (c *Controller) Close() error {
	if c.engine == nil {
		return nil
	}
	c.engine.Stop()
	c.silence()
	return c.release()
}

// build constructs a handle for the next present catalog entry. A file that
// fails to load is skipped; at most one catalog cycle is tried.
func (c *Controller) build() error {
	name, ok := c.songs.Next()
	if !ok {
		return ErrNoSongs
	}

	engine, err := c.newEngine(c.tick)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}

	for attempt := 1; ; attempt++ {
		err = engine.LoadFile(name, c.opts.ChannelOffset)
		if err == nil {
			break
		}
		log.Printf("playback: skipping %s: %v", name, err)
		if attempt >= c.songs.Size() {
			engine.End()
			return fmt.Errorf("load song: %w", err)
		}
		if name, ok = c.songs.Next(); !ok {
			engine.End()
			return ErrNoSongs
		}
	}

	c.engine = engine
	c.track = name
	c.silence()
	c.engine.ResetTrackTables()
	log.Printf("playback: loaded %s", name)
	c.emit(EventLoaded, name, "")
	return nil
}

func (c *Controller) start() {
	c.engine.Start()
	c.emit(EventPlay, c.track, "")
}

func (c *Controller) silence() {
	if err := c.engine.AllNotesOff(); err != nil {
		log.Printf("playback: %v", err)
	}
	if c.opts.Silence != nil {
		c.opts.Silence()
	}
}

func (c *Controller) release() error {
	err := c.engine.End()
	c.engine = nil
	c.track = ""
	if err != nil {
		log.Printf("playback: release engine: %v", err)
	}
	return err
}

func (c *Controller) unavailable(err error) {
	log.Printf("playback: unavailable: %v", err)
	c.emit(EventUnavailable, "", err.Error())
}

func (c *Controller) emit(t EventType, track, reason string) {
	if c.opts.Notify == nil {
		return
	}
	c.opts.Notify(Event{
		Type:      t,
		Track:     track,
		Timestamp: c.opts.Now(),
		Reason:    reason,
	})
}
