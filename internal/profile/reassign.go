package profile

// DefaultLookAhead is the number of raw rows inspected before deciding a new direction.
const DefaultLookAhead = 50

// Reassign walks the rows in order and corrects profile ids that contradict the
// local direction of travel. It returns the number of rows whose id was changed.
//
//   - An id change while depth keeps moving the same way is premature: the row keeps
//     the previous id. If a look-ahead sees exactly one turn coming, a curve is
//     flagged and the next reversal is trusted without another look-ahead.
//   - A reversal inside one id resets the running direction from a look-ahead over
//     the next lookAhead raw rows, at most once per lookAhead rows.
//   - Rows with missing depth inherit the previous row's id.
//
// Unassigned rows are left alone.
func Reassign(z []float64, ids []int, lookAhead int) int {
	if lookAhead < 2 {
		lookAhead = DefaultLookAhead
	}

	var (
		dir      = Unknown
		last     float64
		haveLast bool
		prev     = NoProfile
		curve    bool
		lock     = -1
		changed  int
	)

	for i, id := range ids {
		if id == NoProfile {
			continue
		}
		if !IsValidDepth(z[i]) {
			if prev != NoProfile && id != prev {
				ids[i] = prev
				changed++
			}
			continue
		}
		if !haveLast {
			last, prev, haveLast = z[i], id, true
			continue
		}

		moved := step(last, z[i])
		switch {
		case dir == Unknown:
			dir = moved

		case id != prev:
			if moved == dir {
				if !curve {
					if _, c := LookAhead(z, i, lookAhead); c {
						curve = true
					}
				}
				ids[i] = prev
				id = prev
				changed++
			} else {
				if moved != Unknown {
					dir = moved
				}
				curve = false
			}

		case moved != dir:
			if curve {
				if moved != Unknown {
					dir = moved
				}
				curve = false
			} else if lock <= i {
				if d, _ := LookAhead(z, i, lookAhead); d != Unknown {
					dir = d
				}
				lock = i + lookAhead
			}
		}

		last, prev = z[i], id
	}
	return changed
}
