package server

import (
	"hash/crc32"

	"gridfort/internal/protocol"
)

// ResourceTable maps resource names to downloadable file bytes. The
// manifest goes out in ServerInfo; clients request missing files by name
// hash and receive rate-limited chunks over the reliable channel.
type ResourceTable struct {
	byHash map[uint32]*resource
	order  []uint32
}

type resource struct {
	info protocol.ResourceInfo
	data []byte
}

// NewResourceTable returns an empty table.
func NewResourceTable() *ResourceTable {
	return &ResourceTable{byHash: make(map[uint32]*resource)}
}

// Add registers a downloadable resource.
func (t *ResourceTable) Add(name string, data []byte, isText, canDownload bool) {
	nameHash := crc32.ChecksumIEEE([]byte(name))
	if _, exists := t.byHash[nameHash]; !exists {
		t.order = append(t.order, nameHash)
	}
	t.byHash[nameHash] = &resource{
		info: protocol.ResourceInfo{
			Name:        name,
			NameHash:    nameHash,
			FileHash:    crc32.ChecksumIEEE(data),
			Size:        uint32(len(data)),
			IsText:      isText,
			CanDownload: canDownload,
		},
		data: data,
	}
}

// Find returns the resource for a name hash, or nil.
func (t *ResourceTable) Find(nameHash uint32) *resource { return t.byHash[nameHash] }

// Manifest lists every resource in registration order.
func (t *ResourceTable) Manifest() []protocol.ResourceInfo {
	out := make([]protocol.ResourceInfo, 0, len(t.order))
	for _, h := range t.order {
		out = append(out, t.byHash[h].info)
	}
	return out
}

// handleResourceDownloadRequest starts (or restarts) a chunked upload.
// An unknown name hash is a protocol violation.
func (s *Server) handleResourceDownloadRequest(c *Client, m *protocol.ResourceDownloadRequest) {
	res := s.resources.Find(m.NameHash)
	if res == nil || !res.info.CanDownload {
		s.kickEndpoint(c.endpoint, "requested unknown resource")
		return
	}
	c.upload = &resourceUpload{nameHash: m.NameHash}
}

// pumpResourceUploads sends due chunks for every client with an active
// download, at the configured chunk size and rate.
func (s *Server) pumpResourceUploads() {
	chunkSize := s.cvars.Find("sv_resource_upload_chunk_size").Int()
	for _, c := range s.clients {
		if c.upload == nil || c.conn == nil {
			continue
		}
		if !c.uploadLimiter.Allow() {
			continue
		}
		res := s.resources.Find(c.upload.nameHash)
		if res == nil {
			c.upload = nil
			continue
		}
		remaining := len(res.data) - c.upload.offset
		if remaining < 0 {
			remaining = 0
		}
		n := chunkSize
		if n > remaining {
			n = remaining
		}
		final := c.upload.offset+n >= len(res.data)
		part := &protocol.ResourceDownloadPart{
			NameHash: res.info.NameHash,
			Offset:   uint32(c.upload.offset),
			Data:     res.data[c.upload.offset : c.upload.offset+n],
			Final:    final,
		}
		s.sendTo(c, part)
		c.upload.offset += n
		if final {
			c.upload = nil
		}
	}
}
