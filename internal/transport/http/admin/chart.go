package admin

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"helmsman/internal/risk"
)

// registerChartRoutes serves a live exposure-by-bucket bar chart. Rendered
// server side as a standalone HTML page; refresh to update.
func registerChartRoutes(router *gin.Engine, validator *risk.Validator) {
	router.GET("/charts/exposure", func(c *gin.Context) {
		total, byBucket := validator.Exposure()

		buckets := make([]string, 0, len(byBucket))
		for b := range byBucket {
			buckets = append(buckets, b)
		}
		sort.Strings(buckets)
		values := make([]opts.BarData, 0, len(buckets))
		for _, b := range buckets {
			values = append(values, opts.BarData{Value: byBucket[b]})
		}

		bar := charts.NewBar()
		bar.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{
				Title:    "Exposure by correlation bucket",
				Subtitle: "total: " + formatUSD(total),
			}),
			charts.WithYAxisOpts(opts.YAxis{Name: "USD"}),
		)
		bar.SetXAxis(buckets).AddSeries("exposure", values)

		c.Status(http.StatusOK)
		c.Header("Content-Type", "text/html; charset=utf-8")
		if err := bar.Render(c.Writer); err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
		}
	})
}

func formatUSD(v float64) string {
	return "$" + strconv.FormatFloat(v, 'f', 2, 64)
}
