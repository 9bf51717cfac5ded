package domain

import (
	"fmt"
	"regexp"
)

// MobileBreakpoint is the widest viewport, in CSS pixels, that still gets the
// full-width map.
const MobileBreakpoint = 768

// mobileUARe is a heuristic, not a capability check.
var mobileUARe = regexp.MustCompile(`(?i)Mobi|Android`)

// ViewportSignal is what the platform adapter reports about the client.
type ViewportSignal struct {
	Width     int    `json:"width"`
	UserAgent string `json:"user_agent,omitempty"`
}

// LayoutMode is the sidebar/map arrangement.
type LayoutMode int

const (
	LayoutSplit LayoutMode = iota
	LayoutFullWidth
)

func (m LayoutMode) String() string {
	if m == LayoutFullWidth {
		return "full-width"
	}
	return "split"
}

// MarshalText lets the mode travel as its name in JSON.
func (m LayoutMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText accepts the names MarshalText produces.
func (m *LayoutMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "split":
		*m = LayoutSplit
	case "full-width":
		*m = LayoutFullWidth
	default:
		return fmt.Errorf("unknown layout mode %q", text)
	}
	return nil
}

// Layout carries the derived render flags. Widths are percentages of the
// viewport.
type Layout struct {
	Mode           LayoutMode `json:"mode"`
	Mobile         bool       `json:"mobile"`
	SidebarVisible bool       `json:"sidebar_visible"`
	SidebarWidth   int        `json:"sidebar_width_pct"`
	MapWidth       int        `json:"map_width_pct"`
	MapMarginLeft  int        `json:"map_margin_left_pct"`
}

// IsMobileUserAgent reports whether the user agent looks like a phone or an
// Android device. An empty user agent is treated as desktop.
func IsMobileUserAgent(ua string) bool {
	if ua == "" {
		return false
	}
	return mobileUARe.MatchString(ua)
}

// DecideLayout applies the responsive policy: a narrow viewport or a mobile
// user agent hides the sidebar, otherwise the sidebar takes 20% on the left.
func DecideLayout(sig ViewportSignal) Layout {
	mobile := IsMobileUserAgent(sig.UserAgent)
	if sig.Width <= MobileBreakpoint || mobile {
		return Layout{
			Mode:     LayoutFullWidth,
			Mobile:   mobile,
			MapWidth: 100,
		}
	}
	return Layout{
		Mode:           LayoutSplit,
		SidebarVisible: true,
		SidebarWidth:   20,
		MapWidth:       80,
		MapMarginLeft:  20,
	}
}
