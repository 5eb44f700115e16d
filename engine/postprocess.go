package engine

import (
	"sort"

	iface "TreeDetServer/interface"
)

type yoloParams struct {
	conf   float32
	iou    float32
	scaleX float32
	scaleY float32
	width  float32
	height float32
}

// decodeYOLOv8 reads a row-major [rows, cols] YOLOv8 head: rows 0..3 hold cx, cy,
// w, h in network input pixels and the remaining rows hold one score per class.
func decodeYOLOv8(data []float32, rows, cols int, p yoloParams) []iface.Detection {
	nc := rows - 4
	if nc <= 0 || len(data) < rows*cols {
		return nil
	}

	var cands []iface.Detection
	for j := 0; j < cols; j++ {
		best, score := -1, float32(0)
		for c := 0; c < nc; c++ {
			if s := data[(4+c)*cols+j]; s > score {
				best, score = c, s
			}
		}
		if best < 0 || score < p.conf {
			continue
		}

		cx, cy := data[j], data[cols+j]
		w, h := data[2*cols+j], data[3*cols+j]
		cands = append(cands, iface.Detection{
			Box: iface.NewBox(
				clamp((cx-w/2)*p.scaleX, 0, p.width),
				clamp((cy-h/2)*p.scaleY, 0, p.height),
				clamp((cx+w/2)*p.scaleX, 0, p.width),
				clamp((cy+h/2)*p.scaleY, 0, p.height),
			),
			Class: best,
			Conf:  score,
		})
	}
	return nms(cands, p.iou)
}

// nms performs per-class non-maximum suppression. The result is ordered by
// confidence, highest first.
func nms(dets []iface.Detection, threshold float32) []iface.Detection {
	sort.SliceStable(dets, func(i, j int) bool {
		return dets[i].Conf > dets[j].Conf
	})

	suppressed := make([]bool, len(dets))
	keep := make([]iface.Detection, 0, len(dets))
	for i := range dets {
		if suppressed[i] {
			continue
		}
		keep = append(keep, dets[i])
		for j := i + 1; j < len(dets); j++ {
			if suppressed[j] || dets[j].Class != dets[i].Class {
				continue
			}
			if overlap(dets[i].Box, dets[j].Box) > threshold {
				suppressed[j] = true
			}
		}
	}
	return keep
}

// overlap is the intersection over union of two boxes.
func overlap(a, b iface.Box) float32 {
	iw := min(a.RB.X, b.RB.X) - max(a.LT.X, b.LT.X)
	ih := min(a.RB.Y, b.RB.Y) - max(a.LT.Y, b.LT.Y)
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih
	union := a.Width()*a.Height() + b.Width()*b.Height() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func clamp(v, lo, hi float32) float32 {
	return max(lo, min(v, hi))
}
