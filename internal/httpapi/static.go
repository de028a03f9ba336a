package httpapi

import (
	"os"
	"path"
	"path/filepath"

	"github.com/labstack/echo/v4"
)

// static serves built assets, trying p, p.html and p/index.html before
// falling back to index.html for client-side routes.
func (s *Server) static(c echo.Context) error {
	if file, ok := s.resolve(c.Param("*")); ok {
		return c.File(file)
	}
	return c.File(filepath.Join(s.dist, "index.html"))
}

func (s *Server) resolve(raw string) (string, bool) {
	p := path.Clean("/" + raw)
	if p == "/" {
		return "", false
	}
	for _, candidate := range []string{p, p + ".html", path.Join(p, "index.html")} {
		full := filepath.Join(s.dist, filepath.FromSlash(candidate))
		info, err := os.Stat(full)
		if err == nil && info.Mode().IsRegular() {
			return full, true
		}
	}
	return "", false
}
