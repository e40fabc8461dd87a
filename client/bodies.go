package client

import (
	"github.com/pithecene-io/physlink/scene"
	"github.com/pithecene-io/physlink/types"
)

// A multi-body scene load reports its bodies in one status. The client
// requests body info for each id, last first, and holds the load status
// in pendingOuter until the stack drains, so the caller sees one
// operation ending in the load status itself.

func (c *Client) onSceneLoaded(st *types.Status) *followUp {
	args, _ := st.Args.(types.SceneLoadedArgs)
	ids := args.Bodies()
	c.logger.Debug("scene loaded", map[string]any{"status": st.Type.String(), "bodies": len(ids)})
	if len(ids) == 0 {
		return nil
	}
	outer := *st
	c.pendingOuter = &outer
	c.bodyStack = append(c.bodyStack[:0], ids...)
	return c.nextBodyInfo()
}

func (c *Client) onBodyInfo(st *types.Status) *followUp {
	if args, ok := st.Args.(types.BodyStreamArgs); ok {
		c.ingest(int(args.BodyUniqueID), st)
	}
	return c.nextBodyInfo()
}

func (c *Client) onBodyInfoFailed(st *types.Status) *followUp {
	c.logger.Warn("server reported failure", map[string]any{"status": st.Type.String()})
	c.metrics.IncOperationFailure(st.Type.String())
	return c.nextBodyInfo()
}

func (c *Client) onURDFLoaded(st *types.Status) *followUp {
	if args, ok := st.Args.(types.BodyStreamArgs); ok {
		c.ingest(int(args.BodyUniqueID), st)
	}
	return nil
}

// nextBodyInfo pops the next body to describe, or surfaces the stashed
// scene load status once none remain.
func (c *Client) nextBodyInfo() *followUp {
	if n := len(c.bodyStack); n > 0 {
		id := c.bodyStack[n-1]
		c.bodyStack = c.bodyStack[:n-1]
		c.metrics.IncBodyInfoRequest()
		return &followUp{cmd: types.CommandRequestBodyInfo, args: types.BodyArgs{BodyUniqueID: id}}
	}
	if c.pendingOuter != nil {
		c.lastStatus = *c.pendingOuter
		c.pendingOuter = nil
	}
	return nil
}

// ingest decodes the scene blob that accompanies st and stores it under id.
// A blob that does not decode leaves the body absent.
func (c *Client) ingest(id int, st *types.Status) {
	stream := c.block.ServerStream()
	n := int(st.NumDataStreamBytes)
	if n < 0 || n > len(stream) {
		c.logger.Warn("robot description not received", map[string]any{
			"body": id, "error": "declared blob size out of range", "bytes": n,
		})
		c.metrics.IncDecodeFailure()
		return
	}
	blob := append([]byte(nil), stream[:n]...)

	body, err := scene.Ingest(c.decoder, blob)
	if err != nil {
		c.logger.Warn("robot description not received", map[string]any{"body": id, "error": err.Error()})
		c.metrics.IncDecodeFailure()
		return
	}
	c.caches.Bodies.Put(id, body.BaseName, body.Joints)
	c.logger.Debug("received robot description", map[string]any{
		"body": id, "base_name": body.BaseName, "joints": len(body.Joints),
	})
}
