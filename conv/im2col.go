package conv

// im2col extracts input patches and arranges them as columns.
// x holds g.cg channels of one sample and group.
// Output layout: [cg * kd * kh * kw, od * oh * ow]
func im2col(x []float32, g *geometry, col []float32) {
	idx := 0
	for c := 0; c < g.cg; c++ {
		xc := x[c*g.inSpatial : (c+1)*g.inSpatial]
		for kd := 0; kd < g.kernel[0]; kd++ {
			for kh := 0; kh < g.kernel[1]; kh++ {
				for kw := 0; kw < g.kernel[2]; kw++ {
					for od := 0; od < g.out[0]; od++ {
						id := od*g.stride[0] - g.pad[0] + kd*g.dil[0]
						for oh := 0; oh < g.out[1]; oh++ {
							ih := oh*g.stride[1] - g.pad[1] + kh*g.dil[1]
							for ow := 0; ow < g.out[2]; ow++ {
								iw := ow*g.stride[2] - g.pad[2] + kw*g.dil[2]
								if id >= 0 && id < g.in[0] && ih >= 0 && ih < g.in[1] && iw >= 0 && iw < g.in[2] {
									col[idx] = xc[(id*g.in[1]+ih)*g.in[2]+iw]
								} else {
									col[idx] = 0 // Padding
								}
								idx++
							}
						}
					}
				}
			}
		}
	}
}

// col2im is the adjoint of im2col: it scatters columns back onto the
// input, accumulating overlapping patches into dx.
func col2im(col []float32, g *geometry, dx []float32) {
	idx := 0
	for c := 0; c < g.cg; c++ {
		dc := dx[c*g.inSpatial : (c+1)*g.inSpatial]
		for kd := 0; kd < g.kernel[0]; kd++ {
			for kh := 0; kh < g.kernel[1]; kh++ {
				for kw := 0; kw < g.kernel[2]; kw++ {
					for od := 0; od < g.out[0]; od++ {
						id := od*g.stride[0] - g.pad[0] + kd*g.dil[0]
						for oh := 0; oh < g.out[1]; oh++ {
							ih := oh*g.stride[1] - g.pad[1] + kh*g.dil[1]
							for ow := 0; ow < g.out[2]; ow++ {
								iw := ow*g.stride[2] - g.pad[2] + kw*g.dil[2]
								if id >= 0 && id < g.in[0] && ih >= 0 && ih < g.in[1] && iw >= 0 && iw < g.in[2] {
									dc[(id*g.in[1]+ih)*g.in[2]+iw] += col[idx]
								}
								idx++
							}
						}
					}
				}
			}
		}
	}
}
