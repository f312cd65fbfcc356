package session

import "fmt"

// DeviceInfo is the device's immutable layout, memoized after first
// retrieval.
type DeviceInfo struct {
	Width           uint32
	Height          uint32
	ButtonsPerRow   uint32
	NumOfRows       uint32
	GapSize         uint32
	ButtonSize      uint32
	StatusBarHeight uint32
}

// deriveInfo computes ButtonSize/StatusBarHeight from the wire fields,
// enforcing that width divides exactly across the button grid.
func deriveInfo(width, height, bpr, rows, gap uint32) (DeviceInfo, error) {
	if bpr == 0 || rows == 0 {
		return DeviceInfo{}, fmt.Errorf("%w: buttons_per_row/num_of_rows must be nonzero", ErrProtocol)
	}
	gaps := (bpr - 1) * gap
	if gaps > width {
		return DeviceInfo{}, fmt.Errorf("%w: width %d too small for %d buttons with gap %d", ErrProtocol, width, bpr, gap)
	}
	numerator := width - gaps
	if numerator%bpr != 0 {
		return DeviceInfo{}, fmt.Errorf("%w: width %d does not divide exactly across %d buttons with gap %d", ErrProtocol, width, bpr, gap)
	}
	buttonSize := numerator / bpr

	rowsHeight := rows * (buttonSize + gap)
	if rowsHeight > height {
		return DeviceInfo{}, fmt.Errorf("%w: height %d too small for %d rows of button size %d with gap %d", ErrProtocol, height, rows, buttonSize, gap)
	}
	statusBarHeight := height - rowsHeight

	return DeviceInfo{
		Width:           width,
		Height:          height,
		ButtonsPerRow:   bpr,
		NumOfRows:       rows,
		GapSize:         gap,
		ButtonSize:      buttonSize,
		StatusBarHeight: statusBarHeight,
	}, nil
}
