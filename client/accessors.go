package client

import "github.com/pithecene-io/physlink/types"

// NumBodies returns the number of bodies in the directory.
func (c *Client) NumBodies() int {
	return c.caches.Bodies.Len()
}

// BodyUniqueID returns the id of the body at serial index i.
func (c *Client) BodyUniqueID(i int) (int, bool) {
	return c.caches.Bodies.ID(i)
}

// BodyInfo returns the base name and joint count of body id.
func (c *Client) BodyInfo(id int) (types.BodyInfo, bool) {
	return c.caches.Bodies.Body(id)
}

// NumJoints returns the joint count of body id, or 0 when unknown.
func (c *Client) NumJoints(id int) int {
	return c.caches.Bodies.NumJoints(id)
}

// JointInfo returns joint index of body id.
func (c *Client) JointInfo(id, index int) (types.JointInfo, bool) {
	return c.caches.Bodies.Joint(id, index)
}

// CameraImage returns the last camera image.
func (c *Client) CameraImage() types.CameraImage {
	return c.caches.Camera.Snapshot()
}

// ContactPoints returns the last contact point query result.
func (c *Client) ContactPoints() []types.ContactPoint {
	return c.caches.Contacts.Snapshot()
}

// OverlappingObjects returns the last AABB overlap query result.
func (c *Client) OverlappingObjects() []types.OverlappingObject {
	return c.caches.Overlaps.Snapshot()
}

// VisualShapes returns the last visual shape query result.
func (c *Client) VisualShapes() []types.VisualShape {
	return c.caches.VisualShapes.Snapshot()
}

// DebugLines returns the cached debug lines.
func (c *Client) DebugLines() types.DebugLines {
	return c.caches.DebugLines.Snapshot()
}

// ActualState returns the last state reported for body id.
func (c *Client) ActualState(id int) (types.ActualState, bool) {
	return c.caches.States.Get(id)
}
