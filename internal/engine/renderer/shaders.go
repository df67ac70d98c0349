package renderer

const meshVertexShader = `#version 410 core

layout (location = 0) in vec3 aPos;
layout (location = 1) in vec4 aNormal;
layout (location = 2) in vec2 aTexCoord;
layout (location = 3) in uvec4 aJoints;
layout (location = 4) in vec4 aWeights;

uniform mat4 uViewProj;
uniform mat4 uModel;
uniform bool uSkinned;
uniform sampler2D uJointTex;

out vec3 vNormal;
out vec2 vTexCoord;

// three texels per joint, one row of the affine matrix each
mat4 jointMatrix(uint joint) {
	int base = int(joint) * 3;
	vec4 r0 = texelFetch(uJointTex, ivec2(base, 0), 0);
	vec4 r1 = texelFetch(uJointTex, ivec2(base + 1, 0), 0);
	vec4 r2 = texelFetch(uJointTex, ivec2(base + 2, 0), 0);
	return transpose(mat4(r0, r1, r2, vec4(0.0, 0.0, 0.0, 1.0)));
}

void main() {
	mat4 skin = mat4(1.0);
	if (uSkinned) {
		skin = aWeights.x * jointMatrix(aJoints.x)
			+ aWeights.y * jointMatrix(aJoints.y)
			+ aWeights.z * jointMatrix(aJoints.z)
			+ aWeights.w * jointMatrix(aJoints.w);
	}
	mat4 world = uModel * skin;
	gl_Position = uViewProj * world * vec4(aPos, 1.0);
	vNormal = mat3(world) * aNormal.xyz;
	vTexCoord = aTexCoord;
}
`

const meshFragmentShader = `#version 410 core

in vec3 vNormal;
in vec2 vTexCoord;

uniform sampler2D uBaseColorTex;
uniform bool uHasTexture;
uniform vec4 uBaseColor;
uniform float uAlphaCutoff;
uniform vec3 uLightDir;

out vec4 FragColor;

void main() {
	vec4 color = uBaseColor;
	if (uHasTexture) {
		color *= texture(uBaseColorTex, vTexCoord);
	}
	if (color.a < uAlphaCutoff) {
		discard;
	}
	vec3 n = normalize(vNormal);
	float diffuse = max(dot(n, -uLightDir), 0.0);
	FragColor = vec4(color.rgb * (0.35 + 0.65 * diffuse), color.a);
}
`
