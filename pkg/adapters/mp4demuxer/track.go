package mp4demuxer

import (
	"strings"

	"github.com/Eyevinn/mp4ff/mp4"
)

// MIME types for the sample entries the demuxer recognises.
const (
	MimeAVC  = "video/avc"
	MimeHEVC = "video/hevc"
	MimeAV1  = "video/av01"
	MimeVP8  = "video/x-vnd.on2.vp8"
	MimeVP9  = "video/x-vnd.on2.vp9"
)

// mimeForTrack derives the media type from the handler and sample entry.
func mimeForTrack(trak *mp4.TrakBox) string {
	if trak.Mdia == nil || trak.Mdia.Hdlr == nil {
		return "application/octet-stream"
	}
	entry := sampleEntryType(trak)
	switch trak.Mdia.Hdlr.HandlerType {
	case "vide":
		switch entry {
		case "avc1", "avc3":
			return MimeAVC
		case "hvc1", "hev1":
			return MimeHEVC
		case "av01":
			return MimeAV1
		case "vp08":
			return MimeVP8
		case "vp09":
			return MimeVP9
		case "":
			return "video/unknown"
		default:
			return "video/" + entry
		}
	case "soun":
		if entry == "" {
			return "audio/unknown"
		}
		return "audio/" + entry
	default:
		return "application/" + strings.TrimSpace(trak.Mdia.Hdlr.HandlerType)
	}
}

func sampleEntryType(trak *mp4.TrakBox) string {
	stsd := stsdOf(trak)
	if stsd == nil || len(stsd.Children) == 0 {
		return ""
	}
	return stsd.Children[0].Type()
}

func stsdOf(trak *mp4.TrakBox) *mp4.StsdBox {
	if trak.Mdia == nil || trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
		return nil
	}
	return trak.Mdia.Minf.Stbl.Stsd
}

func visualEntry(trak *mp4.TrakBox) *mp4.VisualSampleEntryBox {
	stsd := stsdOf(trak)
	if stsd == nil {
		return nil
	}
	for _, child := range stsd.Children {
		if v, ok := child.(*mp4.VisualSampleEntryBox); ok {
			return v
		}
	}
	return nil
}

// parameterSets returns SPS and PPS in Annex B form for AVC tracks.
func parameterSets(trak *mp4.TrakBox) []byte {
	v := visualEntry(trak)
	if v == nil || v.AvcC == nil {
		return nil
	}
	var out []byte
	for _, sps := range v.AvcC.SPSnalus {
		out = append(out, 0, 0, 0, 1)
		out = append(out, sps...)
	}
	for _, pps := range v.AvcC.PPSnalus {
		out = append(out, 0, 0, 0, 1)
		out = append(out, pps...)
	}
	return out
}

// avccToAnnexB converts length-prefixed NAL units to start-code prefixed ones.
func avccToAnnexB(data []byte) []byte {
	result := make([]byte, 0, len(data))
	offset := 0
	for offset+4 <= len(data) {
		naluLen := int(data[offset])<<24 | int(data[offset+1])<<16 |
			int(data[offset+2])<<8 | int(data[offset+3])
		offset += 4
		if naluLen < 0 || offset+naluLen > len(data) {
			break
		}
		result = append(result, 0, 0, 0, 1)
		result = append(result, data[offset:offset+naluLen]...)
		offset += naluLen
	}
	return result
}
