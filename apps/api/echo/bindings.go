package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/schedule"
)

var (
	orderingParam = "ordering"
	zoneParam     = "tz"
	maxZones      = 12
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// DisplayZones binds the ?tz= params: "Asia/Seoul" or "Seoul=Asia/Seoul",
// repeated or comma separated. Unknown zones are kept and render as a placeholder.
type DisplayZones struct {
	Zones []schedule.DisplayZone
}

func (dz *DisplayZones) Bind(ctx echo.Context) {
	for _, val := range ctx.QueryParams()[zoneParam] {
		for _, item := range strings.Split(val, ",") {
			if len(dz.Zones) == maxZones {
				return
			}
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}

			label, zone := "", item
			if i := strings.Index(item, "="); i >= 0 {
				label, zone = strings.TrimSpace(item[:i]), strings.TrimSpace(item[i+1:])
			}
			if label == "" {
				label = zone[strings.LastIndex(zone, "/")+1:]
				label = strings.ReplaceAll(label, "_", " ")
			}
			dz.Zones = append(dz.Zones, schedule.DisplayZone{Label: label, Timezone: zone})
		}
	}
}
