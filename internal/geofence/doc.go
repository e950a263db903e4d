/*
Package geofence decides which worksite polygon, if any, contains a coordinate.

Containment uses even-odd ray casting. A point that lies exactly on an edge or
a vertex is treated as outside, so two worksites sharing an edge never both
claim a point on that edge. When polygons overlap, the first worksite in the
supplied order wins; callers must pass worksites in the same order for check-in
and check-out so both decisions agree for the same physical point.

There is no radius fallback: a point outside every polygon simply has no site.
*/
package geofence
