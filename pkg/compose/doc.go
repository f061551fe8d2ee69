// Package compose reads Docker Compose labels for dependency ordering in dockupdate.
//
// Key components:
//   - ParseDependsOnLabel: Extracts service names from a depends_on label, dropping conditions.
//   - ExpandDependency: Lists the container names a service may run under.
//   - Dependencies: Combines both for a container's labels.
//
// Usage example:
//
//	names := compose.Dependencies(container.Labels)
//	// "db:service_healthy" in project "app" yields app-db-1, app_db_1, app-db and db.
package compose
