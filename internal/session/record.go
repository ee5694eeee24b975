package session

import (
	"strconv"
	"time"

	"github.com/mrz1836/aegir/internal/capture"
)

// Image is the stored record of one artifact.
type Image struct {
	Number      int       `json:"number"`
	Index       int       `json:"index"`
	File        string    `json:"file"`
	Time        time.Time `json:"time"`
	ExposureUS  int64     `json:"exposure_us"`
	Gain        float64   `json:"gain"`
	Auto        bool      `json:"auto"`
	Converged   bool      `json:"converged"`
	Attempts    int       `json:"attempts"`
	Saturation  float64   `json:"saturation"`
	Depth       float64   `json:"depth_m"`
	Pressure    float64   `json:"pressure_mbar"`
	Temperature float64   `json:"temperature_c"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
}

// newImage describes a. The exposure is the one the frame was taken with,
// so auto items record what the controller settled on.
func newImage(a *capture.Artifact, file string) Image {
	img := Image{
		Number:      a.Number,
		Index:       a.Index,
		File:        file,
		Time:        a.CapturedAt,
		ExposureUS:  a.Setting.Exposure.Microseconds(),
		Gain:        a.Setting.Gain,
		Auto:        a.Auto,
		Converged:   a.Converged,
		Attempts:    a.Attempts,
		Saturation:  a.Saturation,
		Depth:       a.Depth,
		Pressure:    a.Pressure,
		Temperature: a.AmbientTemperature,
	}
	if f := a.Frame; f != nil {
		img.ExposureUS = f.Exposure.Microseconds()
		img.Gain = f.Gain
		img.Width = f.Width
		img.Height = f.Height
	}
	return img
}

//nolint:gochecknoglobals // fixed column order
var csvHeader = []string{
	"number", "index", "file", "time", "exposure_us", "gain", "auto", "converged",
	"attempts", "saturation", "depth_m", "pressure_mbar", "temperature_c", "width", "height",
}

func (img Image) csvRow() []string {
	return []string{
		strconv.Itoa(img.Number),
		strconv.Itoa(img.Index),
		img.File,
		img.Time.Format(time.RFC3339Nano),
		strconv.FormatInt(img.ExposureUS, 10),
		strconv.FormatFloat(img.Gain, 'g', -1, 64),
		strconv.FormatBool(img.Auto),
		strconv.FormatBool(img.Converged),
		strconv.Itoa(img.Attempts),
		strconv.FormatFloat(img.Saturation, 'f', 5, 64),
		strconv.FormatFloat(img.Depth, 'f', 3, 64),
		strconv.FormatFloat(img.Pressure, 'f', 2, 64),
		strconv.FormatFloat(img.Temperature, 'f', 2, 64),
		strconv.Itoa(img.Width),
		strconv.Itoa(img.Height),
	}
}
