package detect

// NotificationStatus mirrors the shell's QUERY_USER_NOTIFICATION_STATE values.
type NotificationStatus int32

const (
	StatusNotPresent           NotificationStatus = 1
	StatusBusy                 NotificationStatus = 2
	StatusRunningD3DFullScreen NotificationStatus = 3
	StatusPresentationMode     NotificationStatus = 4
	StatusAcceptsNotifications NotificationStatus = 5
	StatusQuietTime            NotificationStatus = 6
	StatusApp                  NotificationStatus = 7
)

// Rect is a screen rectangle in physical pixels.
type Rect struct {
	Left, Top, Right, Bottom int32
}

// Covers reports whether r fully contains other.
func (r Rect) Covers(other Rect) bool {
	return r.Left <= other.Left && r.Top <= other.Top &&
		r.Right >= other.Right && r.Bottom >= other.Bottom
}

// Window style bits inspected by WindowStyleDetector.
const (
	StyleSysMenu uint32 = 0x00080000
	StyleCaption uint32 = 0x00C00000
)

// Desktop is the set of OS queries the detectors need. The Windows build
// answers them with Win32 calls; tests use a fake.
type Desktop interface {
	NotificationState() (NotificationStatus, error)
	// ForegroundWindow returns an opaque handle, 0 when no window has focus.
	ForegroundWindow() (uintptr, error)
	WindowRect(hwnd uintptr) (Rect, error)
	MonitorRect(hwnd uintptr) (Rect, error)
	WindowStyle(hwnd uintptr) (uint32, error)
	HasChildWindows(hwnd uintptr) (bool, error)
}

// NotificationDetector is eligible while the shell reports the user as busy
// or an exclusive Direct3D full-screen application is running.
type NotificationDetector struct {
	Desktop Desktop
}

func (NotificationDetector) Method() Method { return NotificationState }

func (d NotificationDetector) Eligible() bool {
	if d.Desktop == nil {
		return false
	}
	state, err := d.Desktop.NotificationState()
	if err != nil {
		return false
	}
	return state == StatusBusy || state == StatusRunningD3DFullScreen
}

// FullscreenDetector is eligible when the foreground window covers its
// whole monitor.
type FullscreenDetector struct {
	Desktop Desktop
}

func (FullscreenDetector) Method() Method { return Fullscreen }

func (d FullscreenDetector) Eligible() bool {
	hwnd, ok := foreground(d.Desktop)
	if !ok {
		return false
	}
	window, err := d.Desktop.WindowRect(hwnd)
	if err != nil {
		return false
	}
	monitor, err := d.Desktop.MonitorRect(hwnd)
	if err != nil {
		return false
	}
	return window.Covers(monitor)
}

// WindowStyleDetector is eligible when the foreground window has neither a
// system menu nor a caption and owns no child windows.
type WindowStyleDetector struct {
	Desktop Desktop
}

func (WindowStyleDetector) Method() Method { return WindowStyle }

func (d WindowStyleDetector) Eligible() bool {
	hwnd, ok := foreground(d.Desktop)
	if !ok {
		return false
	}
	style, err := d.Desktop.WindowStyle(hwnd)
	if err != nil {
		return false
	}
	// StyleCaption is two bits (border and dialog frame); either one counts.
	if style&StyleSysMenu != 0 || style&StyleCaption != 0 {
		return false
	}
	hasChildren, err := d.Desktop.HasChildWindows(hwnd)
	if err != nil {
		return false
	}
	return !hasChildren
}

func foreground(desktop Desktop) (uintptr, bool) {
	if desktop == nil {
		return 0, false
	}
	hwnd, err := desktop.ForegroundWindow()
	if err != nil || hwnd == 0 {
		return 0, false
	}
	return hwnd, true
}
