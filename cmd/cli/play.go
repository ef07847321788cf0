package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"phimhub/internal/playback"
	"phimhub/internal/progress"
	"phimhub/pkg/models"
	"phimhub/pkg/utils"
)

// handlePlay runs a movie through the playback session from the terminal.
// The media pipeline is simulated with a wall clock: no video is decoded,
// but stream resolution, seeking, server/episode switching and progress
// sync all run against the live API, so resume positions written here show
// up in the apps.
func handlePlay(ctx context.Context, client *http.Client, baseURL, tokenPath string, args []string) {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	slug := fs.String("slug", "", "movie slug")
	episode := fs.String("episode", "", "episode slug (defaults to the resume episode or the first)")
	server := fs.Int("server", 0, "server group index")
	duration := fs.Duration("duration", 45*time.Minute, "simulated stream duration")
	_ = fs.Parse(args)
	if *slug == "" {
		log.Fatal("movie slug is required")
	}

	var detail models.MovieDetail
	if err := doJSON(ctx, client, http.MethodGet, baseURL+"/movies/"+url.PathEscape(*slug), "", nil, &detail); err != nil {
		log.Fatalf("fetch movie: %v", err)
	}
	if len(detail.Servers) == 0 {
		log.Fatal("movie has no playable servers")
	}

	token, _ := loadToken(tokenPath)
	sess := progress.SessionContext{UserID: userIDFromToken(token), Token: token}
	cfg := utils.DefaultPlayerConfig()
	reporter := progress.NewReporter(
		progress.NewHTTPStore(baseURL, token), sess,
		detail.Movie.Slug, detail.Movie.Name, detail.Movie.PosterURL,
		cfg.SyncThresholdMillis,
	)
	reporter.SetEpisode(*episode, "")
	resume := reporter.ResolveResume(ctx)

	surface := newClockSurface(*duration)
	done := make(chan struct{})
	var closeDone sync.Once
	player := playback.NewSession(surface, cfg, reporter, playback.Events{
		OnEpisodeChange: func(slug string) { fmt.Printf("▶ episode: %s\n", slug) },
		OnServerChange:  func(idx int) { fmt.Printf("▶ server: #%d\n", idx) },
		OnError:         func(msg string) { fmt.Printf("✗ stream error: %s\n", msg) },
		OnEnded: func() {
			fmt.Println("■ finished")
			closeDone.Do(func() { close(done) })
		},
	})
	if err := player.Start(&detail.Movie, detail.Servers, *server, *episode, resume); err != nil {
		log.Fatalf("start playback: %v", err)
	}
	sel := player.Selection()
	fmt.Printf("▶ %s / %s (server %q)\n", detail.Movie.Name, sel.Episode.Name, detail.Servers[sel.ServerIndex].ServerName)
	fmt.Printf("  source: %s\n", player.CurrentURL())
	if resume > 0 {
		fmt.Printf("  resuming at %s\n", formatMillis(resume))
	}
	player.Play()

	go replLoop(player, done, &closeDone)
	<-done
	player.Close()
}

func replLoop(player *playback.Session, done chan struct{}, closeDone *sync.Once) {
	fmt.Println("commands: p=pause/play  f=+10s  b=-10s  s <sec>=seek  n=next  v=prev  r=rate  e <idx>=server  q=quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.Fields(strings.TrimSpace(scanner.Text()))
		if len(line) == 0 {
			fmt.Printf("  %s / %s [%s]\n", formatMillis(player.PositionMillis()), formatMillis(player.DurationMillis()), player.State())
			continue
		}
		switch line[0] {
		case "p":
			player.TogglePlay()
		case "f":
			player.Skip(10_000)
		case "b":
			player.Skip(-10_000)
		case "s":
			if len(line) < 2 {
				continue
			}
			secs, err := strconv.ParseInt(line[1], 10, 64)
			if err != nil {
				continue
			}
			player.BeginSeek()
			player.EndSeek(secs * 1000)
		case "n":
			if err := player.NextEpisode(); err != nil {
				log.Printf("next episode: %v", err)
			}
		case "v":
			if err := player.PrevEpisode(); err != nil {
				log.Printf("prev episode: %v", err)
			}
		case "r":
			fmt.Printf("  rate %.2gx\n", player.CycleRate())
		case "e":
			if len(line) < 2 {
				continue
			}
			idx, err := strconv.Atoi(line[1])
			if err != nil {
				continue
			}
			if err := player.SwitchServer(idx); err != nil {
				log.Printf("switch server: %v", err)
			}
		case "q":
			closeDone.Do(func() { close(done) })
			return
		}
	}
	closeDone.Do(func() { close(done) })
}

// clockSurface stands in for the media pipeline: position advances with
// the wall clock at the active rate, scaled so any stream fits the
// configured duration.
type clockSurface struct {
	mu       sync.Mutex
	sink     playback.StatusSink
	duration int64
	position int64
	rate     float64
	playing  bool
	stop     chan struct{}
}

func newClockSurface(duration time.Duration) *clockSurface {
	return &clockSurface{duration: duration.Milliseconds(), rate: 1.0}
}

func (c *clockSurface) Load(url string, sink playback.StatusSink) error {
	c.mu.Lock()
	if c.stop != nil {
		close(c.stop)
	}
	c.sink = sink
	c.position = 0
	c.playing = false
	stop := make(chan struct{})
	c.stop = stop
	c.mu.Unlock()

	go c.run(stop)
	return nil
}

func (c *clockSurface) run(stop chan struct{}) {
	const step = 500 * time.Millisecond
	ticker := time.NewTicker(step)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		if c.playing {
			c.position += int64(float64(step.Milliseconds()) * c.rate)
		}
		finished := c.position >= c.duration
		if finished {
			c.position = c.duration
			c.playing = false
		}
		st := playback.Status{
			IsLoaded:       true,
			PositionMillis: c.position,
			DurationMillis: c.duration,
			IsPlaying:      c.playing,
			DidJustFinish:  finished,
		}
		sink := c.sink
		c.mu.Unlock()

		sink(st)
		if finished {
			return
		}
	}
}

func (c *clockSurface) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = true
	return nil
}

func (c *clockSurface) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = false
	return nil
}

func (c *clockSurface) SeekTo(positionMillis int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = positionMillis
	return nil
}

func (c *clockSurface) SetRate(rate float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rate = rate
	return nil
}

func (c *clockSurface) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	return nil
}

func (c *clockSurface) SupportsPictureInPicture() bool { return false }

// userIDFromToken pulls the user_id claim out of a JWT without verifying
// it. The server re-verifies every report; the id here only marks the
// session as signed in and labels local output.
func userIDFromToken(token string) string {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return ""
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ""
	}
	var claims struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return ""
	}
	return claims.UserID
}

func formatMillis(ms int64) string {
	secs := ms / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
