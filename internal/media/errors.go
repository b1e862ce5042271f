package media

import "errors"

var (
	// ErrProbeUnavailable indicates the ffprobe binary could not be executed.
	ErrProbeUnavailable = errors.New("media probe unavailable")
	// ErrUnreadableMedia indicates an upload that ffprobe could not read as a video.
	ErrUnreadableMedia = errors.New("unreadable media file")
	// ErrFileTooLarge indicates an upload above the configured size limit.
	ErrFileTooLarge = errors.New("file exceeds upload limit")
	// ErrStorageUnavailable indicates no object store is configured.
	ErrStorageUnavailable = errors.New("media storage unavailable")
	// ErrJanitorClosed is returned by Enqueue after Shutdown.
	ErrJanitorClosed = errors.New("media janitor closed")
	// ErrJanitorBusy is returned by Enqueue when the deletion queue is full.
	ErrJanitorBusy = errors.New("media janitor queue full")
)
