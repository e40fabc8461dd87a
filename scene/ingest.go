package scene

import "github.com/pithecene-io/physlink/types"

// Body is the directory entry produced by ingesting one blob.
type Body struct {
	BaseName string
	Joints   []types.JointInfo
}

// Ingest decodes data and folds every record into a single body entry.
// Joints of later records follow those of earlier ones and the last
// record's name wins, matching how the server sends one body per blob.
func Ingest(dec Decoder, data []byte) (*Body, error) {
	if dec == nil {
		dec = MsgpackDecoder{}
	}
	records, err := dec.Decode(data)
	if err != nil {
		return nil, err
	}
	body := &Body{}
	for _, mb := range records {
		body.BaseName = mb.BaseName
		for _, j := range mb.Joints {
			j.JointIndex = len(body.Joints)
			body.Joints = append(body.Joints, j)
		}
	}
	return body, nil
}
