package recast

// FilterLowHangingWalkableObstacles marks non walkable spans walkable when
// they sit within walkableClimb of a walkable span right below, so agents
// can step over curbs and stairs.
func FilterLowHangingWalkableObstacles(walkableClimb int, hf *Heightfield) {
	for _, s := range hf.spans {
		prevWalkable := false
		prevArea := NullArea
		var ps *Span
		for ; s != nil; ps, s = s, s.next {
			walkable := s.area != NullArea
			if !walkable && prevWalkable && absi(s.smax-ps.smax) <= walkableClimb {
				s.area = prevArea
			}
			// Copy the flag so it cannot propagate past several obstacles.
			prevWalkable = walkable
			prevArea = s.area
		}
	}
}

// FilterLedgeSpans clears spans next to a drop deeper than walkableClimb
// and spans on slopes too steep between accessible neighbours.
func FilterLedgeSpans(walkableHeight, walkableClimb int, hf *Heightfield) {
	w, h := hf.width, hf.height
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for s := hf.spans[x+y*w]; s != nil; s = s.next {
				if s.area == NullArea {
					continue
				}
				bot := s.smax
				top := maxHeight
				if s.next != nil {
					top = s.next.smin
				}
				// Lowest neighbour drop, and the range of accessible neighbour heights.
				minh := maxHeight
				asmin, asmax := s.smax, s.smax
				for dir := 0; dir < 4; dir++ {
					dx := x + dirOffsX(dir)
					dy := y + dirOffsY(dir)
					if dx < 0 || dy < 0 || dx >= w || dy >= h {
						minh = mini(minh, -walkableClimb-bot)
						continue
					}
					// From minus infinity to the first span.
					ns := hf.spans[dx+dy*w]
					nbot := -walkableClimb
					ntop := maxHeight
					if ns != nil {
						ntop = ns.smin
					}
					if mini(top, ntop)-maxi(bot, nbot) > walkableHeight {
						minh = mini(minh, nbot-bot)
					}
					for ; ns != nil; ns = ns.next {
						nbot = ns.smax
						ntop = maxHeight
						if ns.next != nil {
							ntop = ns.next.smin
						}
						if mini(top, ntop)-maxi(bot, nbot) > walkableHeight {
							minh = mini(minh, nbot-bot)
							if absi(nbot-bot) <= walkableClimb {
								asmin = mini(asmin, nbot)
								asmax = maxi(asmax, nbot)
							}
						}
					}
				}
				if minh < -walkableClimb || asmax-asmin > walkableClimb {
					s.area = NullArea
				}
			}
		}
	}
}

// FilterWalkableLowHeightSpans clears spans without walkableHeight of free
// space above them.
func FilterWalkableLowHeightSpans(walkableHeight int, hf *Heightfield) {
	for _, s := range hf.spans {
		for ; s != nil; s = s.next {
			top := maxHeight
			if s.next != nil {
				top = s.next.smin
			}
			if top-s.smax <= walkableHeight {
				s.area = NullArea
			}
		}
	}
}
