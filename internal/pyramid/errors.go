package pyramid

import "errors"

// ErrNoSuchTile is returned for tile ids outside the grid of their level
var ErrNoSuchTile = errors.New("no such tile")
