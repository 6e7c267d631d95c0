package profile

// findHVN returns high volume nodes: buckets whose volume is at least
// HVNFactor times the mean and which are local maxima, or at least twice
// the mean regardless. HVN act as support/resistance and attract price.
func (b *Builder) findHVN(volumes []float64, priceMin, bucketSize float64) []float64 {
	mean := meanOf(volumes)
	threshold := mean * b.cfg.HVNFactor

	var hvn []float64
	for i, vol := range volumes {
		if vol < threshold {
			continue
		}
		localMax := true
		if i > 0 && volumes[i-1] >= vol {
			localMax = false
		}
		if i < len(volumes)-1 && volumes[i+1] >= vol {
			localMax = false
		}
		if localMax || vol >= mean*2 {
			hvn = append(hvn, priceMin+float64(i)*bucketSize+bucketSize/2)
		}
	}
	return hvn
}

// findLVN returns low volume nodes: non-empty buckets whose volume is at
// most LVNFactor of the mean and which are local minima. Price tends to
// move quickly through these levels.
func (b *Builder) findLVN(volumes []float64, priceMin, bucketSize float64) []float64 {
	mean := meanOf(volumes)
	threshold := mean * b.cfg.LVNFactor

	var lvn []float64
	for i, vol := range volumes {
		if vol > threshold || vol <= 0 {
			continue
		}
		localMin := true
		if i > 0 && volumes[i-1] <= vol {
			localMin = false
		}
		if i < len(volumes)-1 && volumes[i+1] <= vol {
			localMin = false
		}
		if localMin {
			lvn = append(lvn, priceMin+float64(i)*bucketSize+bucketSize/2)
		}
	}
	return lvn
}

func meanOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
