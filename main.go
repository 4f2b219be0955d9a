package main

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/joho/godotenv"
	"github.com/veandco/go-sdl2/sdl"

	"hushfeed/pkg/feedapi"
	"hushfeed/pkg/mediafs"
	"hushfeed/pkg/netquality"
	"hushfeed/pkg/preload"
	"hushfeed/pkg/settings"
	"hushfeed/screens/feed"
	"hushfeed/ui"
)

const (
	targetFPS      = 60
	fallbackWidth  = 1080
	fallbackHeight = 1920

	defaultAPIBase   = "https://api.hushfeed.app"
	defaultShareBase = "https://hushfeed.app"
	defaultCacheDir  = "assets/cache"

	networkProbeInterval = 5 * time.Second
)

func main() {
	// CRITICAL: Lock OS thread immediately before any other operations
	runtime.LockOSThread()

	setupMemoryManagement()

	// Configure logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Load environment configuration
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	windowTitle := os.Getenv("APP_TITLE")
	if windowTitle == "" {
		windowTitle = "Hushfeed"
	}

	apiBase := os.Getenv("FEED_API_URL")
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	shareBase := os.Getenv("SHARE_BASE_URL")
	if shareBase == "" {
		shareBase = defaultShareBase
	}
	cacheDir := os.Getenv("MEDIA_CACHE_DIR")
	if cacheDir == "" {
		cacheDir = defaultCacheDir
	}

	// Initialize SDL2 with fallback options
	if err := initializeSDL2(); err != nil {
		log.Fatalf("Failed to initialize SDL2: %v", err)
	}
	defer func() {
		log.Println("Shutting down SDL2...")
		sdl.Quit()
		runtime.GC()
	}()

	screenWidth, screenHeight := getDisplayDimensions()
	log.Printf("Starting %s | Resolution: %dx%d", windowTitle, screenWidth, screenHeight)

	window, err := createWindow(windowTitle, screenWidth, screenHeight)
	if err != nil {
		log.Fatalf("Failed to create window: %v", err)
	}
	defer window.Destroy()

	renderer, err := createRenderer(window)
	if err != nil {
		log.Fatalf("Failed to create renderer: %v", err)
	}
	defer renderer.Destroy()

	fonts, err := ui.LoadFonts()
	if err != nil {
		log.Printf("Warning: fonts unavailable, running without text: %v", err)
	}
	if fonts != nil {
		defer fonts.Close()
	}

	// Assemble the feed collaborators
	cache, err := mediafs.New(cacheDir)
	if err != nil {
		log.Fatalf("Failed to open media cache at %s: %v", cacheDir, err)
	}
	defer cache.Close()

	cfg := settings.Load()
	profile := preload.DetectProfile()
	log.Printf("Device profile: tier=%s window=%d maxLive=%d",
		profile.Tier, profile.PreloadWindowSize, profile.MaxLiveUnits)

	monitor := netquality.NewMonitor(netquality.ProbeSysfs)
	monitor.Start(networkProbeInterval)
	defer monitor.Stop()

	controller := feed.NewController(feedapi.NewClient(apiBase), cache, profile, cfg)
	defer controller.Close()

	screen := feed.NewFeedScreen(controller, shareBase, cfg.CaptionsEnabled())
	screen.SetRenderer(renderer)

	controller.OnNetworkState(monitor.Current())
	controller.Start()

	runMainLoop(screen, controller, monitor, renderer, fonts, screenWidth, screenHeight)

	log.Println("Hushfeed shutting down...")
}

// setupMemoryManagement caps the heap for small-memory devices.
func setupMemoryManagement() {
	debug.SetGCPercent(50)
	debug.SetMemoryLimit(512 << 20)
}

// initializeSDL2 initializes SDL2 with fallback video drivers
func initializeSDL2() error {
	envDriver := os.Getenv("SDL_VIDEODRIVER")
	var videoDrivers []string

	if envDriver != "" {
		log.Printf("Using environment SDL_VIDEODRIVER: %s", envDriver)
		videoDrivers = []string{envDriver, "software", "dummy"}
	} else if runtime.GOOS == "darwin" {
		videoDrivers = []string{"cocoa", "software", "dummy"}
	} else {
		videoDrivers = []string{"kmsdrm", "wayland", "x11", "software", "dummy"}
	}

	for _, driver := range videoDrivers {
		log.Printf("Attempting SDL2 initialization with %s driver", driver)
		os.Setenv("SDL_VIDEODRIVER", driver)

		if err := trySDLInitialization(driver); err != nil {
			log.Printf("SDL2 initialization failed with %s driver: %v", driver, err)
			continue
		}

		log.Printf("SDL2 successfully initialized with %s driver", driver)
		return nil
	}

	return fmt.Errorf("all SDL2 video drivers failed")
}

// trySDLInitialization attempts to initialize SDL2 with safer error handling
func trySDLInitialization(driver string) error {
	sdl.Quit()

	sdl.SetHint(sdl.HINT_VIDEODRIVER, driver)
	switch driver {
	case "cocoa":
		sdl.SetHint(sdl.HINT_RENDER_DRIVER, "opengl")
	case "kmsdrm":
		sdl.SetHint(sdl.HINT_RENDER_DRIVER, "opengles2")
		sdl.SetHint("SDL_RENDER_VSYNC", "1")
	case "software":
		sdl.SetHint(sdl.HINT_RENDER_DRIVER, "software")
	}
	sdl.SetHint(sdl.HINT_RENDER_BATCHING, "1")
	sdl.SetHint(sdl.HINT_VIDEO_MINIMIZE_ON_FOCUS_LOSS, "0")

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return fmt.Errorf("SDL_INIT_VIDEO failed: %v", err)
	}

	driverName, err := sdl.GetCurrentVideoDriver()
	if err != nil {
		return fmt.Errorf("failed to get video driver: %v", err)
	}
	log.Printf("Video driver initialized: %s", driverName)

	// Audio is optional; the feed plays muted without it
	if err := sdl.InitSubSystem(sdl.INIT_AUDIO); err != nil {
		log.Printf("Warning: Audio initialization failed: %v", err)
	}

	return nil
}

// getDisplayDimensions returns the screen dimensions or fallback values
func getDisplayDimensions() (int32, int32) {
	displayMode, err := sdl.GetCurrentDisplayMode(0)
	if err != nil {
		log.Printf("Warning: Failed to get display mode, using fallback: %v", err)
		return fallbackWidth, fallbackHeight
	}
	return displayMode.W, displayMode.H
}

// createWindow creates a fullscreen SDL2 window
func createWindow(title string, width, height int32) (*sdl.Window, error) {
	return sdl.CreateWindow(
		title,
		0,
		0,
		width,
		height,
		sdl.WINDOW_SHOWN|sdl.WINDOW_FULLSCREEN,
	)
}

// createRenderer creates an SDL2 renderer, preferring hardware acceleration
func createRenderer(window *sdl.Window) (*sdl.Renderer, error) {
	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		log.Printf("Hardware acceleration failed, trying software: %v", err)
		renderer, err = sdl.CreateRenderer(window, -1, sdl.RENDERER_SOFTWARE)
		if err != nil {
			return nil, err
		}
	}

	// Alpha blending for scrims and overlays
	renderer.SetDrawBlendMode(sdl.BLENDMODE_BLEND)
	return renderer, nil
}

// runMainLoop executes the main SDL2 render loop
func runMainLoop(screen *feed.FeedScreen, controller *feed.Controller, monitor *netquality.Monitor,
	renderer *sdl.Renderer, fonts *ui.Fonts, screenWidth, screenHeight int32) {

	running := true
	frameTime := time.Second / targetFPS
	lastTime := time.Now()
	frameCount := 0

	for running {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch ev := event.(type) {
			case *sdl.QuitEvent:
				running = false
			case *sdl.WindowEvent:
				switch ev.Event {
				case sdl.WINDOWEVENT_FOCUS_LOST, sdl.WINDOWEVENT_MINIMIZED, sdl.WINDOWEVENT_HIDDEN:
					screen.EnterBackground()
				case sdl.WINDOWEVENT_FOCUS_GAINED, sdl.WINDOWEVENT_RESTORED, sdl.WINDOWEVENT_SHOWN:
					screen.EnterForeground()
				}
			case *sdl.KeyboardEvent:
				if ev.Type == sdl.KEYDOWN && ev.Keysym.Scancode == sdl.SCANCODE_Q {
					running = false
				}
			}
		}

		controller.OnNetworkState(monitor.Current())

		keyState := sdl.GetKeyboardState()
		if err := screen.Update(keyState); err != nil {
			log.Printf("Screen update error: %v", err)
			running = false
			break
		}

		renderer.SetDrawColor(0, 0, 0, 255)
		renderer.Clear()
		if err := screen.Draw(renderer, screenWidth, screenHeight, fonts); err != nil {
			log.Printf("Screen draw error: %v", err)
			running = false
			break
		}
		renderer.Present()

		// Periodic garbage collection (every 60 frames)
		frameCount++
		if frameCount%60 == 0 {
			runtime.GC()
		}

		// Frame rate limiting
		elapsed := time.Since(lastTime)
		if elapsed < frameTime {
			time.Sleep(frameTime - elapsed)
		}
		lastTime = time.Now()
	}
}
