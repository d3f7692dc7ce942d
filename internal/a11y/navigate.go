package a11y

import (
	"context"
	"errors"
)

// Navigate follows a relation from h and resolves the target.
// Returns ErrBoundary when there is nothing in that direction.
func (m *Model) Navigate(ctx context.Context, h Handle, dir Direction) (Node, error) {
	target, err := m.step(ctx, h, dir)
	if err != nil {
		return Node{}, err
	}
	return m.Resolve(ctx, target)
}

func (m *Model) step(ctx context.Context, h Handle, dir Direction) (Handle, error) {
	switch dir {
	case DirParent:
		return m.Parent(ctx, h)

	case DirFirstChild, DirLastChild:
		kids, err := m.Children(ctx, h)
		if err != nil {
			return Handle{}, err
		}
		if len(kids) == 0 {
			return Handle{}, ErrBoundary
		}
		if dir == DirFirstChild {
			return kids[0], nil
		}
		return kids[len(kids)-1], nil

	case DirNext, DirPrevious:
		return m.sibling(ctx, h, dir == DirNext)

	case DirCellLeft, DirCellRight:
		return m.cellInRow(ctx, h, dir == DirCellRight)

	case DirCellUp, DirCellDown:
		return m.cellInColumn(ctx, h, dir == DirCellDown)
	}
	return Handle{}, ErrUnsupported
}

// sibling finds the neighbour of h under its parent.
func (m *Model) sibling(ctx context.Context, h Handle, forward bool) (Handle, error) {
	parent, err := m.Parent(ctx, h)
	if err != nil {
		return Handle{}, err
	}
	kids, err := m.Children(ctx, parent)
	if err != nil {
		return Handle{}, err
	}
	idx := indexOf(kids, h)
	if idx < 0 {
		// The parent no longer lists h: it was detached in between.
		return Handle{}, ErrStale
	}
	if forward {
		idx++
	} else {
		idx--
	}
	if idx < 0 || idx >= len(kids) {
		return Handle{}, ErrBoundary
	}
	return kids[idx], nil
}

// cellInRow moves to the cell in the same row with the adjacent column.
func (m *Model) cellInRow(ctx context.Context, h Handle, forward bool) (Handle, error) {
	cell, err := m.ReadProperties(ctx, h)
	if err != nil {
		return Handle{}, err
	}
	if cell.Col < 0 {
		return Handle{}, ErrBoundary
	}
	row, err := m.Parent(ctx, h)
	if err != nil {
		return Handle{}, err
	}
	want := cell.Col - 1
	if forward {
		want = cell.Col + 1
	}
	return m.cellWithColumn(ctx, row, want)
}

// cellInColumn moves to the adjacent row and picks the cell in the same column.
func (m *Model) cellInColumn(ctx context.Context, h Handle, forward bool) (Handle, error) {
	cell, err := m.ReadProperties(ctx, h)
	if err != nil {
		return Handle{}, err
	}
	if cell.Col < 0 {
		return Handle{}, ErrBoundary
	}
	row, err := m.Parent(ctx, h)
	if err != nil {
		return Handle{}, err
	}
	next, err := m.sibling(ctx, row, forward)
	if err != nil {
		return Handle{}, err
	}
	return m.cellWithColumn(ctx, next, cell.Col)
}

func (m *Model) cellWithColumn(ctx context.Context, row Handle, col int) (Handle, error) {
	if col < 0 {
		return Handle{}, ErrBoundary
	}
	kids, err := m.Children(ctx, row)
	if err != nil {
		return Handle{}, err
	}
	for _, k := range kids {
		snap, err := m.ReadProperties(ctx, k)
		if err != nil {
			if errors.Is(err, ErrStale) {
				continue
			}
			return Handle{}, err
		}
		if snap.Col == col {
			return k, nil
		}
	}
	return Handle{}, ErrBoundary
}

func indexOf(hs []Handle, h Handle) int {
	for i, x := range hs {
		if x == h {
			return i
		}
	}
	return -1
}
