// Package mocks provides ghttp handlers emulating the Docker engine API for tests.
package mocks

import (
	"net/http"

	"github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	dockerContainerType "github.com/docker/docker/api/types/container"
	dockerImageType "github.com/docker/docker/api/types/image"
)

// FoundStatus tells handlers whether the addressed object exists.
type FoundStatus bool

const (
	Found   FoundStatus = true
	Missing FoundStatus = false
)

// Mock response fixture for no-content status (204).
var noContentStatusResponse = ghttp.RespondWith(http.StatusNoContent, nil)

// notFoundResponse mimics the engine's 404 body.
func notFoundResponse(message string) http.HandlerFunc {
	return ghttp.RespondWithJSONEncoded(http.StatusNotFound, map[string]string{"message": message})
}

// foundOrMissing answers 204 when found and 404 otherwise.
func foundOrMissing(found FoundStatus, message string) http.HandlerFunc {
	if found {
		return noContentStatusResponse
	}

	return notFoundResponse(message)
}

// ListImagesHandler serves the given image summaries.
func ListImagesHandler(images ...dockerImageType.Summary) http.HandlerFunc {
	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("GET", gomega.HaveSuffix("/images/json")),
		ghttp.RespondWithJSONEncoded(http.StatusOK, images),
	)
}

// ListContainersHandler serves the given container summaries, asserting stopped containers are requested.
func ListContainersHandler(containers ...dockerContainerType.Summary) http.HandlerFunc {
	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("GET", gomega.HaveSuffix("/containers/json")),
		func(_ http.ResponseWriter, r *http.Request) {
			gomega.Expect(r.URL.Query().Get("all")).To(gomega.Equal("1"))
		},
		ghttp.RespondWithJSONEncoded(http.StatusOK, containers),
	)
}

// GetContainerHandler serves inspection data, or a 404 if info is nil.
func GetContainerHandler(containerID string, info *dockerContainerType.InspectResponse) http.HandlerFunc {
	response := notFoundResponse("No such container: " + containerID)
	if info != nil {
		response = ghttp.RespondWithJSONEncoded(http.StatusOK, info)
	}

	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("GET", gomega.HaveSuffix("/containers/%s/json", containerID)),
		response,
	)
}

// CreateContainerHandler asserts the container name and answers with newID.
func CreateContainerHandler(name, newID string) http.HandlerFunc {
	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("POST", gomega.HaveSuffix("/containers/create"), "name="+name),
		ghttp.RespondWithJSONEncoded(http.StatusCreated, dockerContainerType.CreateResponse{ID: newID}),
	)
}

// StartContainerHandler returns 204 if found, 404 if not.
func StartContainerHandler(containerID string, found FoundStatus) http.HandlerFunc {
	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("POST", gomega.HaveSuffix("/containers/%s/start", containerID)),
		foundOrMissing(found, "No such container: "+containerID),
	)
}

// StopContainerHandler returns 204 if found, 404 if not.
func StopContainerHandler(containerID string, found FoundStatus) http.HandlerFunc {
	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("POST", gomega.HaveSuffix("/containers/%s/stop", containerID)),
		foundOrMissing(found, "No such container: "+containerID),
	)
}

// KillContainerHandler returns 204 if found, 404 if not.
func KillContainerHandler(containerID string, found FoundStatus) http.HandlerFunc {
	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("POST", gomega.HaveSuffix("/containers/%s/kill", containerID)),
		foundOrMissing(found, "No such container: "+containerID),
	)
}

// RemoveContainerHandler returns 204 if found, 404 if not.
func RemoveContainerHandler(containerID string, found FoundStatus) http.HandlerFunc {
	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("DELETE", gomega.HaveSuffix("/containers/%s", containerID)),
		foundOrMissing(found, "No such container: "+containerID),
	)
}

// RemoveImageHandler answers an image deletion with untagged and deleted items, or a 404 if missing.
func RemoveImageHandler(imageID string, found FoundStatus) http.HandlerFunc {
	response := notFoundResponse("No such image: " + imageID)
	if found {
		response = ghttp.RespondWithJSONEncoded(http.StatusOK, []dockerImageType.DeleteResponse{
			{Untagged: "foo/bar:1.0"},
			{Deleted: imageID},
		})
	}

	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("DELETE", gomega.HaveSuffix("/images/%s", imageID)),
		response,
	)
}

// PullImageHandler streams progress messages for an image pull of tag.
func PullImageHandler(tag string, messages ...string) http.HandlerFunc {
	body := ""
	for _, message := range messages {
		body += message + "\n"
	}

	return ghttp.CombineHandlers(
		ghttp.VerifyRequest("POST", gomega.HaveSuffix("/images/create")),
		func(_ http.ResponseWriter, r *http.Request) {
			gomega.Expect(r.URL.Query().Get("tag")).To(gomega.Equal(tag))
		},
		ghttp.RespondWith(http.StatusOK, body),
	)
}
