package playback

/*
#cgo pkg-config: libavformat libavcodec libavutil libswscale

#include <stdlib.h>
#include <libavformat/avformat.h>
#include <libavcodec/avcodec.h>
#include <libavutil/imgutils.h>
#include <libswscale/swscale.h>
#include <libavutil/log.h>

typedef struct {
    AVFormatContext *formatCtx;
    AVCodecContext  *codecCtx;
    AVFrame         *frame;
    AVFrame         *frameRGBA;
    struct SwsContext *swsCtx;
    int             videoStream;
    uint8_t         *bufferRGBA;
} Decoder;

// Opens the file and the default decoder for its first video stream.
int feed_open_decoder(const char *filename, Decoder *d) {
    av_log_set_level(AV_LOG_ERROR);
    d->videoStream = -1;

    if (avformat_open_input(&d->formatCtx, filename, NULL, NULL) != 0) {
        return -1;
    }
    if (avformat_find_stream_info(d->formatCtx, NULL) < 0) {
        return -2;
    }

    for (unsigned int i = 0; i < d->formatCtx->nb_streams; i++) {
        if (d->formatCtx->streams[i]->codecpar->codec_type == AVMEDIA_TYPE_VIDEO) {
            d->videoStream = (int)i;
            break;
        }
    }
    if (d->videoStream == -1) {
        return -3;
    }

    AVCodecParameters *par = d->formatCtx->streams[d->videoStream]->codecpar;
    const AVCodec *codec = avcodec_find_decoder(par->codec_id);
    if (!codec) {
        return -4;
    }

    d->codecCtx = avcodec_alloc_context3(codec);
    if (!d->codecCtx) {
        return -4;
    }
    avcodec_parameters_to_context(d->codecCtx, par);
    d->codecCtx->thread_type = FF_THREAD_FRAME;
    d->codecCtx->thread_count = 0;
    if (avcodec_open2(d->codecCtx, codec, NULL) < 0) {
        avcodec_free_context(&d->codecCtx);
        return -4;
    }

    d->frame = av_frame_alloc();
    d->frameRGBA = av_frame_alloc();

    int width = d->codecCtx->width;
    int height = d->codecCtx->height;
    int numBytes = av_image_get_buffer_size(AV_PIX_FMT_RGBA, width, height, 1);
    d->bufferRGBA = (uint8_t *)av_malloc(numBytes * sizeof(uint8_t));
    av_image_fill_arrays(d->frameRGBA->data, d->frameRGBA->linesize, d->bufferRGBA,
                         AV_PIX_FMT_RGBA, width, height, 1);

    d->swsCtx = sws_getContext(width, height, d->codecCtx->pix_fmt,
                               width, height, AV_PIX_FMT_RGBA,
                               SWS_BILINEAR, NULL, NULL, NULL);
    return 0;
}

// Decodes one frame into RGBA. Returns 1 on success, 0 on EOF, negative on error.
int feed_decode_frame(Decoder *d, uint8_t **rgba_data) {
    AVPacket packet;
    int ret;

    while (av_read_frame(d->formatCtx, &packet) >= 0) {
        if (packet.stream_index == d->videoStream) {
            ret = avcodec_send_packet(d->codecCtx, &packet);
            if (ret < 0) {
                av_packet_unref(&packet);
                return -1;
            }
            ret = avcodec_receive_frame(d->codecCtx, d->frame);
            if (ret == AVERROR(EAGAIN) || ret == AVERROR_EOF) {
                av_packet_unref(&packet);
                continue;
            } else if (ret < 0) {
                av_packet_unref(&packet);
                return -2;
            }

            sws_scale(d->swsCtx,
                      (const uint8_t * const*)d->frame->data,
                      d->frame->linesize,
                      0,
                      d->codecCtx->height,
                      d->frameRGBA->data,
                      d->frameRGBA->linesize);

            *rgba_data = d->frameRGBA->data[0];
            av_packet_unref(&packet);
            return 1;
        }
        av_packet_unref(&packet);
    }
    return 0;
}

void feed_close_decoder(Decoder *d) {
    if (!d) return;
    av_free(d->bufferRGBA);
    av_frame_free(&d->frameRGBA);
    av_frame_free(&d->frame);
    avcodec_free_context(&d->codecCtx);
    if (d->formatCtx) {
        avformat_close_input(&d->formatCtx);
    }
}

double feed_decoder_fps(Decoder *d) {
    if (!d || d->videoStream < 0) {
        return 0;
    }
    AVStream *st = d->formatCtx->streams[d->videoStream];
    AVRational r = av_guess_frame_rate(d->formatCtx, st, NULL);
    if (r.den == 0) {
        return 0;
    }
    return av_q2d(r);
}
*/
import "C"

import (
	"fmt"
	"io"
	"sync"
	"time"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"
)

type videoDecoder struct {
	cdec   C.Decoder
	path   string
	width  int
	height int
	fps    float64
}

func openVideoDecoder(path string) (*videoDecoder, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	dec := &videoDecoder{path: path}
	if ret := C.feed_open_decoder(cPath, &dec.cdec); ret != 0 {
		return nil, fmt.Errorf("open decoder for %s failed (code=%d)", path, int(ret))
	}

	dec.width = int(dec.cdec.codecCtx.width)
	dec.height = int(dec.cdec.codecCtx.height)
	dec.fps = float64(C.feed_decoder_fps(&dec.cdec))
	if dec.fps <= 0 {
		dec.fps = 30
	}
	return dec, nil
}

func (d *videoDecoder) nextFrame() ([]byte, error) {
	var data *C.uint8_t
	ret := C.feed_decode_frame(&d.cdec, &data)
	switch {
	case ret == 0:
		return nil, io.EOF
	case ret < 0:
		return nil, fmt.Errorf("decode error (code=%d)", int(ret))
	}

	bufLen := d.width * d.height * 4 // RGBA
	return C.GoBytes(unsafe.Pointer(data), C.int(bufLen)), nil
}

func (d *videoDecoder) close() {
	C.feed_close_decoder(&d.cdec)
}

// AVHandle is the FFmpeg/SDL2 playback unit: one decoder, one streaming
// texture. Confession clips loop while active. The feed screen drives
// UpdateFrame/Draw for the active unit each frame; background units sit on
// their first decoded frame.
type AVHandle struct {
	m        sync.Mutex
	dec      *videoDecoder
	renderer *sdl.Renderer
	texture  *sdl.Texture

	status   Status
	notifier *statusNotifier
	playing  bool
	muted    bool

	acc      float64 // accumulated fractional frames
	lastTime time.Time

	closeOnce sync.Once
}

// NewAVHandle opens a local media file. The handle comes back Ready with
// its first frame decodable; call SetRenderer before drawing.
func NewAVHandle(path string) (*AVHandle, error) {
	dec, err := openVideoDecoder(path)
	if err != nil {
		return nil, err
	}
	return &AVHandle{
		dec:      dec,
		status:   StatusReady,
		notifier: newStatusNotifier(),
		muted:    true,
	}, nil
}

// SetRenderer binds the SDL renderer and uploads the first frame.
func (h *AVHandle) SetRenderer(renderer *sdl.Renderer) error {
	h.m.Lock()
	defer h.m.Unlock()

	h.renderer = renderer
	var err error
	h.texture, err = renderer.CreateTexture(uint32(sdl.PIXELFORMAT_RGBA32),
		sdl.TEXTUREACCESS_STREAMING, int32(h.dec.width), int32(h.dec.height))
	if err != nil {
		return fmt.Errorf("failed to create texture: %v", err)
	}

	firstFrame, err := h.dec.nextFrame()
	if err != nil {
		return err
	}
	return h.updateTextureLocked(firstFrame)
}

// Play resumes frame advancement.
func (h *AVHandle) Play() {
	h.m.Lock()
	h.playing = true
	h.lastTime = time.Now()
	h.setStatusLocked(StatusPlaying)
	h.m.Unlock()
}

// Pause freezes the current frame.
func (h *AVHandle) Pause() {
	h.m.Lock()
	h.playing = false
	if h.status == StatusPlaying {
		h.setStatusLocked(StatusPaused)
	}
	h.m.Unlock()
}

// SetMuted toggles audio output. Video-only builds track the flag so the
// mute indicator stays truthful.
func (h *AVHandle) SetMuted(muted bool) {
	h.m.Lock()
	h.muted = muted
	h.m.Unlock()
}

// Muted reports the mute flag.
func (h *AVHandle) Muted() bool {
	h.m.Lock()
	defer h.m.Unlock()
	return h.muted
}

// SeekToStart rewinds by reopening the decoder on the same file.
func (h *AVHandle) SeekToStart() error {
	h.m.Lock()
	defer h.m.Unlock()
	return h.restartLocked()
}

// Status returns the current playback status.
func (h *AVHandle) Status() Status {
	h.m.Lock()
	defer h.m.Unlock()
	return h.status
}

// AddStatusListener registers a status callback.
func (h *AVHandle) AddStatusListener(fn func(Status)) *Subscription {
	return h.notifier.add(fn)
}

// UpdateFrame advances playback by wall-clock time, decoding as many frames
// as fell due. Loops at EOF. Called once per render frame for the active
// unit only.
func (h *AVHandle) UpdateFrame() error {
	h.m.Lock()
	defer h.m.Unlock()

	if !h.playing || h.texture == nil {
		return nil
	}

	now := time.Now()
	if h.lastTime.IsZero() {
		h.lastTime = now
	}
	dt := now.Sub(h.lastTime).Seconds()
	h.lastTime = now

	h.acc += dt * h.dec.fps
	steps := int(h.acc)
	if steps == 0 {
		return nil
	}
	h.acc -= float64(steps)

	var data []byte
	var err error
	for i := 0; i < steps; i++ {
		data, err = h.dec.nextFrame()
		if err != nil {
			break
		}
	}

	if err == io.EOF {
		return h.restartLocked()
	}
	if err != nil {
		h.setStatusLocked(StatusError)
		return err
	}
	return h.updateTextureLocked(data)
}

// Draw renders the current frame letterboxed into the given viewport.
func (h *AVHandle) Draw(renderer *sdl.Renderer, screenWidth, screenHeight int32) error {
	h.m.Lock()
	texture := h.texture
	videoWidth := int32(h.dec.width)
	videoHeight := int32(h.dec.height)
	h.m.Unlock()

	if texture == nil {
		return nil
	}

	scaleW := float64(screenWidth) / float64(videoWidth)
	scaleH := float64(screenHeight) / float64(videoHeight)
	scale := scaleW
	if scaleH < scaleW {
		scale = scaleH
	}

	renderWidth := int32(float64(videoWidth) * scale)
	renderHeight := int32(float64(videoHeight) * scale)

	dstRect := sdl.Rect{
		X: (screenWidth - renderWidth) / 2,
		Y: (screenHeight - renderHeight) / 2,
		W: renderWidth,
		H: renderHeight,
	}
	return renderer.Copy(texture, nil, &dstRect)
}

// FPS returns the stream's frames-per-second estimate.
func (h *AVHandle) FPS() float64 {
	h.m.Lock()
	defer h.m.Unlock()
	return h.dec.fps
}

// Release frees the texture and decoder. Safe to call more than once.
func (h *AVHandle) Release() {
	h.closeOnce.Do(func() {
		h.m.Lock()
		if h.texture != nil {
			h.texture.Destroy()
			h.texture = nil
		}
		if h.dec != nil {
			h.dec.close()
			h.dec = nil
		}
		h.playing = false
		h.status = StatusIdle
		h.m.Unlock()
		h.notifier.clear()
	})
}

func (h *AVHandle) updateTextureLocked(frameData []byte) error {
	if h.texture == nil {
		return fmt.Errorf("texture not initialized")
	}

	pixels, _, err := h.texture.Lock(nil)
	if err != nil {
		return fmt.Errorf("failed to lock texture: %v", err)
	}
	defer h.texture.Unlock()

	copy(pixels, frameData)
	return nil
}

func (h *AVHandle) restartLocked() error {
	path := h.dec.path
	h.dec.close()

	dec, err := openVideoDecoder(path)
	if err != nil {
		h.setStatusLocked(StatusError)
		return err
	}
	h.dec = dec

	if h.texture != nil {
		h.texture.Destroy()
		h.texture = nil
	}
	if h.renderer != nil {
		h.texture, err = h.renderer.CreateTexture(uint32(sdl.PIXELFORMAT_RGBA32),
			sdl.TEXTUREACCESS_STREAMING, int32(dec.width), int32(dec.height))
		if err != nil {
			return fmt.Errorf("failed to recreate texture: %v", err)
		}
		firstFrame, err := h.dec.nextFrame()
		if err != nil {
			return err
		}
		if err := h.updateTextureLocked(firstFrame); err != nil {
			return err
		}
	}

	h.acc = 0
	h.lastTime = time.Now()
	return nil
}

func (h *AVHandle) setStatusLocked(s Status) {
	if h.status == s {
		return
	}
	h.status = s
	// Notify outside the lock to keep listener code free to call back in.
	go h.notifier.notify(s)
}
