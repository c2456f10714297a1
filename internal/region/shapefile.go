package region

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/geom/proj"

	"github.com/banshee-data/hotspot.report/internal/monitoring"
)

var logf = monitoring.Prefixed("region")

// polygon wraps a boundary so it can be stored in the R-tree.
type polygon struct {
	geom.Polygonal
	name string
}

// Polygons is a union of polygons indexed by bounding box. A point is
// contained when it lies inside or on the edge of any member.
type Polygons struct {
	tree  *rtree.Rtree
	count int
	bbox  *geom.Bounds
}

// NewPolygons indexes the given polygons.
func NewPolygons(polys ...geom.Polygonal) *Polygons {
	p := &Polygons{tree: rtree.NewTree(25, 50), bbox: geom.NewBounds()}
	for k, poly := range polys {
		p.add(polygon{Polygonal: poly, name: fmt.Sprintf("polygon_%d", k)})
	}
	return p
}

func (p *Polygons) add(poly polygon) {
	p.tree.Insert(poly)
	p.bbox.Extend(poly.Bounds())
	p.count++
}

// Len returns the number of indexed polygons.
func (p *Polygons) Len() int { return p.count }

// Bounds returns the envelope of every polygon.
func (p *Polygons) Bounds() *geom.Bounds { return p.bbox }

// Contains reports whether (x, y) is inside any polygon.
func (p *Polygons) Contains(x, y float64) bool {
	pt := geom.Point{X: x, Y: y}
	for _, item := range p.tree.SearchIntersect(pt.Bounds()) {
		poly, ok := item.(polygon)
		if !ok {
			continue
		}
		if pt.Within(poly.Polygonal) != geom.Outside {
			return true
		}
	}
	return false
}

// LoadShapefile reads every polygonal record of an ESRI shapefile. When
// targetProj is non-empty (a PROJ4 string such as "+proj=merc ..." for
// EPSG:3857), shapes are reprojected from the shapefile's own .prj into
// that reference; otherwise coordinates are used as stored. nameField, if
// set, labels each polygon for logging.
func LoadShapefile(path, targetProj, nameField string) (*Polygons, error) {
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	defer dec.Close()

	var trans proj.Transformer
	if targetProj != "" {
		src, err := dec.SR()
		if err != nil {
			return nil, fmt.Errorf("read projection of %s: %w", path, err)
		}
		dst, err := proj.Parse(targetProj)
		if err != nil {
			return nil, fmt.Errorf("parse target projection: %w", err)
		}
		trans, err = src.NewTransform(dst)
		if err != nil {
			return nil, fmt.Errorf("build transform: %w", err)
		}
	}

	var fields []string
	if nameField != "" {
		fields = append(fields, nameField)
	}
	out := &Polygons{tree: rtree.NewTree(25, 50), bbox: geom.NewBounds()}
	for {
		g, attrs, more := dec.DecodeRowFields(fields...)
		if !more {
			break
		}
		if trans != nil {
			if g, err = g.Transform(trans); err != nil {
				return nil, fmt.Errorf("reproject %s: %w", path, err)
			}
		}
		poly, ok := g.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("shapefile %s: record %d is %T, want a polygon", path, out.count, g)
		}
		name := attrs[nameField]
		if name == "" {
			name = fmt.Sprintf("polygon_%d", out.count)
		}
		out.add(polygon{Polygonal: poly, name: name})
	}
	if err := dec.Error(); err != nil {
		return nil, fmt.Errorf("decode shapefile %s: %w", path, err)
	}
	logf("loaded %d polygons from %s", out.count, path)
	return out, nil
}
