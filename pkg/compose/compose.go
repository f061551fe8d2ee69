package compose

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Docker Compose labels.
const (
	// ComposeDependsOnLabel lists the services a container depends on, as service:condition[:required] entries.
	ComposeDependsOnLabel = "com.docker.compose.depends_on"
	// ComposeProjectLabel holds the Compose project a container belongs to.
	ComposeProjectLabel = "com.docker.compose.project"
	// ComposeServiceLabel holds the Compose service a container runs.
	ComposeServiceLabel = "com.docker.compose.service"
)

// ParseDependsOnLabel returns the service names of a depends_on label value.
//
// Conditions and required flags after the first colon are dropped, as are empty entries.
//
// Parameters:
//   - labelValue: Raw value of com.docker.compose.depends_on.
//
// Returns:
//   - []string: Service names in label order, nil for an empty value.
func ParseDependsOnLabel(labelValue string) []string {
	if strings.TrimSpace(labelValue) == "" {
		return nil
	}

	var services []string

	for entry := range strings.SplitSeq(labelValue, ",") {
		service, _, _ := strings.Cut(strings.TrimSpace(entry), ":")
		if service = strings.TrimSpace(service); service != "" {
			services = append(services, service)
		}
	}

	logrus.WithFields(logrus.Fields{
		"label_value": labelValue,
		"services":    services,
	}).Debug("Parsed compose depends-on label")

	return services
}

// ExpandDependency lists the container names a Compose service dependency may run under.
//
// Compose v2 names containers <project>-<service>-1, v1 used <project>_<service>_1, and
// containers with a custom container_name may carry either the bare service name or the
// project-qualified one. Without a project only the service name is returned.
func ExpandDependency(project, service string) []string {
	if project == "" {
		return []string{service}
	}

	return []string{
		project + "-" + service + "-1",
		project + "_" + service + "_1",
		project + "-" + service,
		service,
	}
}

// Dependencies returns every container name a container's depends_on label may refer to.
//
// Parameters:
//   - labels: Container labels.
//
// Returns:
//   - []string: Expanded names, duplicates removed, in label order.
func Dependencies(labels map[string]string) []string {
	services := ParseDependsOnLabel(labels[ComposeDependsOnLabel])
	if len(services) == 0 {
		return nil
	}

	project := GetProjectName(labels)
	seen := make(map[string]bool)

	var names []string

	for _, service := range services {
		for _, name := range ExpandDependency(project, service) {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	return names
}

// GetProjectName returns the Compose project of a container, or "" outside Compose.
func GetProjectName(labels map[string]string) string {
	return labels[ComposeProjectLabel]
}

// GetServiceName returns the Compose service of a container, or "" outside Compose.
func GetServiceName(labels map[string]string) string {
	return labels[ComposeServiceLabel]
}
