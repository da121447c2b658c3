// Package yunet provides the OpenCV-backed face detector and webcam frame
// source. It requires gocv and a local OpenCV install.
package yunet

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"github.com/teslashibe/go-acuity/pkg/detection"
	"github.com/teslashibe/go-acuity/pkg/geometry"
	"gocv.io/x/gocv"
)

// Detector uses OpenCV's FaceDetectorYN for face detection
type Detector struct {
	detector gocv.FaceDetectorYN
	config   detection.Config
	logger   *slog.Logger
	mu       sync.Mutex // Protects inference
}

// New creates a YuNet face detector using GoCV's built-in FaceDetectorYN
func New(cfg detection.Config) (*Detector, error) {
	if _, err := os.Stat(cfg.ModelPath); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", detection.ErrModelNotFound, cfg.ModelPath)
	}

	// Initial size; updated per image
	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"", // No config file needed for ONNX
		image.Pt(cfg.InputWidth, cfg.InputHeight),
		float32(cfg.ConfidenceThresh),
		0.3,  // NMS threshold
		5000, // Top K
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &Detector{
		detector: detector,
		config:   cfg,
		logger:   slog.Default().With("component", "yunet"),
	}, nil
}

// Detect finds faces in the JPEG image. Boxes are in frame pixels.
func (d *Detector) Detect(jpeg []byte) (detection.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return detection.Result{}, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return detection.Result{}, fmt.Errorf("empty image")
	}

	res := detection.Result{FrameWidth: img.Cols(), FrameHeight: img.Rows()}

	d.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()

	d.detector.Detect(img, &faces)

	for r := 0; r < faces.Rows(); r++ {
		// YuNet output format (15 columns):
		// 0-3: x, y, w, h (bounding box in pixels)
		// 4-13: 5 facial landmarks (x,y pairs)
		// 14: face score
		x := float64(faces.GetFloatAt(r, 0))
		y := float64(faces.GetFloatAt(r, 1))
		w := float64(faces.GetFloatAt(r, 2))
		h := float64(faces.GetFloatAt(r, 3))
		score := float64(faces.GetFloatAt(r, 14))

		res.Faces = append(res.Faces, detection.Face{
			Prediction: geometry.BoxPrediction{
				TopLeft:     geometry.Point{X: x, Y: y},
				BottomRight: geometry.Point{X: x + w, Y: y + h},
			},
			Confidence: score,
		})
	}

	if len(res.Faces) > 0 {
		d.logger.Debug("faces found", "count", len(res.Faces))
	}

	return res, nil
}

// Close releases the detector resources
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}
