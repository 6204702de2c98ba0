package router

import (
	"net/http"
	"strings"
)

// Group registers routes under a shared prefix. The prefix and the route
// pattern are joined and normalized the same way as any other pattern.
type Group struct {
	router *Router
	prefix string
}

func (g *Group) join(pattern string) string {
	return strings.TrimRight(g.prefix, "/") + "/" + strings.TrimLeft(pattern, "/")
}

// AddRoute registers target under the group prefix.
func (g *Group) AddRoute(method, pattern string, target Target) error {
	return g.router.AddRoute(method, g.join(pattern), target)
}

func (g *Group) Get(pattern string, target Target) {
	g.router.collect(http.MethodGet, g.join(pattern), target)
}

func (g *Group) Post(pattern string, target Target) {
	g.router.collect(http.MethodPost, g.join(pattern), target)
}

func (g *Group) Put(pattern string, target Target) {
	g.router.collect(http.MethodPut, g.join(pattern), target)
}

func (g *Group) Delete(pattern string, target Target) {
	g.router.collect(http.MethodDelete, g.join(pattern), target)
}

func (g *Group) Options(pattern string, target Target) {
	g.router.collect(http.MethodOptions, g.join(pattern), target)
}

// Group nests another prefix under this one.
func (g *Group) Group(prefix string, fn func(g *Group)) {
	fn(&Group{router: g.router, prefix: g.join(prefix)})
}
