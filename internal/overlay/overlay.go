package overlay

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/campus-rath/internal/models"
)

var ErrUnsupportedGeometry = errors.New("unsupported geometry")

// Load reads the campus overlay at path. A missing or malformed file yields
// nil, in which case the campus layers are skipped.
func Load(path string) *models.Overlay {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.WithError(err).WithField("path", path).Debug("Campus overlay unavailable")
		return nil
	}
	var overlay models.Overlay
	if err := json.Unmarshal(data, &overlay); err != nil {
		log.WithError(err).WithField("path", path).Debug("Campus overlay malformed")
		return nil
	}
	return &overlay
}

// Labels derives one text label per named feature.
func Labels(overlay *models.Overlay) []models.Label {
	if overlay == nil {
		return nil
	}
	labels := make([]models.Label, 0, len(overlay.Features))
	for _, feature := range overlay.Features {
		name, ok := feature.Name()
		if !ok {
			continue
		}
		pos, err := anchor(feature.Geometry)
		if err != nil {
			log.WithError(err).WithField("feature", name).Debug("Skipping overlay label")
			continue
		}
		labels = append(labels, models.Label{Name: name, Position: pos})
	}
	return labels
}

// anchor picks the label position: first vertex of the first ring for
// polygons, first coordinate for lines, the point itself otherwise.
func anchor(geometry models.OverlayGeometry) ([2]float64, error) {
	var pos []float64
	switch geometry.Type {
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(geometry.Coordinates, &rings); err != nil {
			return [2]float64{}, err
		}
		if len(rings) > 0 && len(rings[0]) > 0 {
			pos = rings[0][0]
		}
	case "LineString":
		var line [][]float64
		if err := json.Unmarshal(geometry.Coordinates, &line); err != nil {
			return [2]float64{}, err
		}
		if len(line) > 0 {
			pos = line[0]
		}
	case "Point":
		if err := json.Unmarshal(geometry.Coordinates, &pos); err != nil {
			return [2]float64{}, err
		}
	default:
		return [2]float64{}, fmt.Errorf("%w: %q", ErrUnsupportedGeometry, geometry.Type)
	}
	if len(pos) < 2 {
		return [2]float64{}, fmt.Errorf("%w: empty %s", ErrUnsupportedGeometry, geometry.Type)
	}
	return [2]float64{pos[0], pos[1]}, nil
}
