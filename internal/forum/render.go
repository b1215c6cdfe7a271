package forum

import (
	"github.com/tbourn/beast-forums/internal/pipeline"
	"github.com/tbourn/beast-forums/internal/textile"
)

// NewPipeline builds the post rendering pipeline: Textile to HTML, then
// bluemonday's UGC sanitizer. maxBytes caps Textile input (0 = no cap).
func NewPipeline(mount string, maxBytes int) (*pipeline.Pipeline, error) {
	return pipeline.New(pipeline.Context{"base_url": mount},
		pipeline.NewTextileFilter(textile.New(maxBytes)),
		pipeline.NewSanitizationFilter(nil),
	)
}
